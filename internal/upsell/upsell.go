// Package upsell asks a generative language model for product bundle and
// discount suggestions based on a customer's order history and cart.
package upsell

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/generative-ai-go/genai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/xenking/storefront/internal/domain/apperr"
)

const serviceName = "upsell model"

// ErrUnavailable is returned when no model is configured.
var ErrUnavailable = errors.New("upsell generator is not configured")

// Request is the admin's description of a customer.
type Request struct {
	OrderHistory string `field:"orderHistory" validate:"min=10,max=5000"`
	CurrentCart  string `field:"currentCart" validate:"min=5,max=2000"`
}

// Suggestion is the generated upsell offer.
type Suggestion struct {
	SuggestedBundles string
	DiscountOffer    string
}

// Config configures the Generator.
type Config struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	Model   string        `json:"model" yaml:"model" default:"gemini-2.0-flash"`
	Timeout time.Duration `json:"timeout" yaml:"timeout" default:"30s"`
}

type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Generator produces upsell suggestions with one model call per request.
// Failed calls are not retried.
type Generator struct {
	model   contentGenerator
	client  *genai.Client
	timeout time.Duration
	tracer  trace.Tracer
}

// New creates a Generator. Without an API key the generator is created but
// every call fails with ErrUnavailable.
func New(ctx context.Context, cfg Config, tp trace.TracerProvider) (*Generator, error) {
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	g := &Generator{
		timeout: cfg.Timeout,
		tracer:  tp.Tracer("storefront/upsell"),
	}
	if cfg.APIKey == "" {
		return g, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, errors.Wrap(err, "create genai client")
	}
	model := client.GenerativeModel(cfg.Model)
	model.SetCandidateCount(1)
	model.SetTemperature(0.7)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = responseSchema
	model.SystemInstruction = genai.NewUserContent(genai.Text(systemPrompt))

	g.model = model
	g.client = client
	return g, nil
}

// Close releases the model client.
func (g *Generator) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

// Configured reports whether a model is available.
func (g *Generator) Configured() bool { return g.model != nil }

// Suggest validates req and asks the model for a suggestion. Model,
// transport and output format failures are reported as
// apperr.ExternalServiceError.
func (g *Generator) Suggest(ctx context.Context, req Request) (_ *Suggestion, rerr error) {
	if err := apperr.ValidateStruct(req); err != nil {
		return nil, err
	}

	ctx, span := g.tracer.Start(ctx, "upsell.Suggest", trace.WithAttributes(
		attribute.Int("upsell.history_len", len(req.OrderHistory)),
		attribute.Int("upsell.cart_len", len(req.CurrentCart)),
	))
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	if g.model == nil {
		return nil, apperr.External(serviceName, ErrUnavailable)
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := g.model.GenerateContent(ctx, genai.Text(userPrompt(req)))
	if err != nil {
		return nil, apperr.External(serviceName, errors.Wrap(err, "generate content"))
	}
	s, err := parseResponse(resp)
	if err != nil {
		return nil, apperr.External(serviceName, err)
	}

	zctx.From(ctx).Debug("Upsell generated", zap.Duration("took", time.Since(start)))
	return s, nil
}

const systemPrompt = `You are an assistant helping a sales admin of a small online shop write upsell offers.
Suggest product bundles that complement the items in the current cart and are relevant to the customer's past purchases.
Then write a personalized discount offer that encourages the customer to buy the suggested bundles.
Answer with a JSON object with the fields "suggestedBundles" and "discountOffer".`

var responseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"suggestedBundles": {
			Type:        genai.TypeString,
			Description: "Product bundles to offer the customer, based on the order history and current cart.",
		},
		"discountOffer": {
			Type:        genai.TypeString,
			Description: "A personalized discount offer for the suggested bundles.",
		},
	},
	Required: []string{"suggestedBundles", "discountOffer"},
}

func userPrompt(req Request) string {
	return fmt.Sprintf("Order history:\n%s\n\nCurrent cart:\n%s", req.OrderHistory, req.CurrentCart)
}

func parseResponse(resp *genai.GenerateContentResponse) (*Suggestion, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New("empty model response")
	}
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	raw := extractObject(text.String())
	if raw == "" {
		return nil, errors.New("model response has no JSON object")
	}

	var s Suggestion
	d := jx.DecodeStr(raw)
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "suggestedBundles":
			s.SuggestedBundles, err = decodeText(d)
		case "discountOffer":
			s.DiscountOffer, err = decodeText(d)
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		return nil, errors.Wrap(err, "decode model response")
	}
	if strings.TrimSpace(s.SuggestedBundles) == "" || strings.TrimSpace(s.DiscountOffer) == "" {
		return nil, errors.New("model response is missing fields")
	}
	return &s, nil
}

// decodeText reads a string, or joins an array of strings with newlines.
// Models sometimes answer with a list of bundles despite the schema.
func decodeText(d *jx.Decoder) (string, error) {
	if d.Next() != jx.Array {
		return d.Str()
	}
	var lines []string
	if err := d.Arr(func(d *jx.Decoder) error {
		s, err := d.Str()
		if err != nil {
			return err
		}
		lines = append(lines, s)
		return nil
	}); err != nil {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}

// extractObject trims markdown fences and surrounding prose from a model
// answer, returning the outermost JSON object.
func extractObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}
