package translation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"

	"lingua-flow-go/internal/types"
)

type lambdaInvoker interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// translatorRequest is the payload accepted by the translator function (chunked mode).
type translatorRequest struct {
	Chunks     [][]string `json:"chunks"`
	SourceLang string     `json:"source_lang,omitempty"`
	TargetLang string     `json:"target_lang"`
}

type translatorResponse struct {
	Translations [][]string `json:"translations"`
	Error        string     `json:"error,omitempty"`
}

// CloudProvider translates through a translator Lambda function.
type CloudProvider struct {
	client       lambdaInvoker
	functionName string
}

// NewCloudProvider loads the default AWS configuration and proves that credentials
// resolve. Any failure here makes the router fall back to the community provider.
func NewCloudProvider(ctx context.Context, functionName string) (*CloudProvider, error) {
	functionName = strings.TrimSpace(functionName)
	if functionName == "" {
		return nil, errors.New("translator function name is required")
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if cfg.Credentials == nil {
		return nil, errors.New("no AWS credentials provider configured")
	}
	if _, err := cfg.Credentials.Retrieve(ctx); err != nil {
		return nil, fmt.Errorf("failed to retrieve AWS credentials: %w", err)
	}

	return &CloudProvider{
		client:       lambda.NewFromConfig(cfg),
		functionName: functionName,
	}, nil
}

// CloudFactoryFor adapts NewCloudProvider to the router's factory signature.
func CloudFactoryFor(functionName string) CloudFactory {
	return func(ctx context.Context) (Provider, error) {
		p, err := NewCloudProvider(ctx, functionName)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

func (p *CloudProvider) Name() string             { return "lambda:" + p.functionName }
func (p *CloudProvider) Kind() types.ProviderKind { return types.ProviderCloud }

func (p *CloudProvider) TranslateChunk(ctx context.Context, req ChunkRequest) (string, error) {
	source := req.SourceLang
	if source == AutoSourceLang {
		source = ""
	}
	payload, err := json.Marshal(translatorRequest{
		Chunks:     [][]string{{req.Text}},
		SourceLang: source,
		TargetLang: req.TargetLang,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	result, err := p.client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName: aws.String(p.functionName),
		Payload:      payload,
	})
	if err != nil {
		return "", fmt.Errorf("failed to invoke %s: %w", p.functionName, err)
	}
	if result.FunctionError != nil {
		return "", fmt.Errorf("lambda error: %s", aws.ToString(result.FunctionError))
	}

	var resp translatorResponse
	if err := json.Unmarshal(result.Payload, &resp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("translator error: %s", resp.Error)
	}
	if len(resp.Translations) == 0 || len(resp.Translations[0]) == 0 {
		return "", errors.New("translator returned no translations")
	}

	return resp.Translations[0][0], nil
}
