package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"

	"github.com/sirupsen/logrus"

	"lingua-flow-go/internal/guard"
	"lingua-flow-go/internal/lambdaevent"
	"lingua-flow-go/internal/pipeline"
)

type runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// WarmupResponse is returned for keep-warm pings.
type WarmupResponse struct {
	Status string `json:"status"`
}

type handler struct {
	runner         runner
	log            *logrus.Entry
	maxUploadBytes int64
}

func newHandler(r runner, maxUploadBytes int64, log *logrus.Entry) *handler {
	return &handler{runner: r, log: log, maxUploadBytes: maxUploadBytes}
}

// Handle runs one pipeline invocation. Pipeline and validation failures are reported
// in the response body so callers always receive the user-visible message.
func (h *handler) Handle(ctx context.Context, event json.RawMessage) (any, error) {
	// warmup detection comes before any parsing
	if lambdaevent.IsWarmup(event) {
		return WarmupResponse{Status: "warm"}, nil
	}

	ev, err := lambdaevent.Parse(event)
	if err != nil {
		h.log.WithField("error", err.Error()).Warn("rejected event")
		return lambdaevent.Response{Error: err.Error(), Kind: string(pipeline.KindInvalidRequest)}, nil
	}
	asset, err := ev.Asset(h.maxUploadBytes)
	if errors.Is(err, guard.ErrSizeExceeded) {
		pe := &pipeline.Error{Kind: pipeline.KindSizeExceeded, Stage: pipeline.StageSizeCheck, Err: err}
		h.log.WithField("error", err.Error()).Warn("rejected oversized event")
		return lambdaevent.Response{Mode: ev.Mode, Error: pe.Message(), Kind: string(pe.Kind)}, nil
	}
	if err != nil {
		return lambdaevent.Response{Mode: ev.Mode, Error: err.Error(), Kind: string(pipeline.KindInvalidRequest)}, nil
	}

	res, err := h.runner.Run(ctx, pipeline.Request{
		Mode:       ev.Mode,
		Asset:      asset,
		TargetLang: ev.Lang,
		STTLang:    ev.STTLang,
	})
	if err != nil {
		return lambdaevent.Response{Mode: ev.Mode, Error: pipeline.MessageOf(err), Kind: string(pipeline.KindOf(err))}, nil
	}

	out := lambdaevent.Response{Mode: ev.Mode}
	switch {
	case res.Audio != nil:
		defer res.Audio.Release()
		audio, err := res.Audio.ReadAll()
		if err != nil {
			return nil, err
		}
		out.AudioBase64 = base64.StdEncoding.EncodeToString(audio)
		out.DownloadName = res.DownloadName()
	case ev.Mode.Translates():
		out.TranslatedText = res.Text
	default:
		out.Text = res.Text
	}
	return out, nil
}
