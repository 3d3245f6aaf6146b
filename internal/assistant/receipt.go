package assistant

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"appliance-warranty-backend/config"
)

// ReceiptFields are the values read from a receipt photo. Nil means the
// field could not be read.
type ReceiptFields struct {
	ModelNumber  *string `json:"modelNumber"`
	PurchaseDate *string `json:"purchaseDate"`
	StoreName    *string `json:"storeName"`
}

const receiptPrompt = `このレシートから製品情報を読み取り、以下のJSON形式のみで返してください（他のテキスト不要）:
{"modelNumber":"型番またはnull","purchaseDate":"YYYY-MM-DD形式またはnull","storeName":"購入店舗名またはnull"}`

var codeFence = regexp.MustCompile("```(?:json)?\\s*|\\s*```")

// ReceiptReader extracts purchase details from receipt images.
type ReceiptReader struct {
	gen     Generator
	model   string
	timeout time.Duration
	log     *zap.Logger
}

func NewReceiptReader(gen Generator, cfg config.AssistantConfig, log *zap.Logger) *ReceiptReader {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReceiptReader{
		gen:     gen,
		model:   cfg.VisionModel,
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		log:     log,
	}
}

// Configured reports whether a model backs the reader.
func (r *ReceiptReader) Configured() bool { return r.gen != nil }

// Read sends the image to the vision model. Any failure yields all-nil fields.
func (r *ReceiptReader) Read(ctx context.Context, image []byte, mimeType string) ReceiptFields {
	if r.gen == nil || len(image) == 0 {
		return ReceiptFields{}
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(image, mimeType),
			genai.NewPartFromText(receiptPrompt),
		}, genai.RoleUser),
	}
	text, err := r.gen.Generate(ctx, r.model, contents, &genai.GenerateContentConfig{MaxOutputTokens: 200})
	if err != nil {
		r.log.Warn("receipt read failed", zap.String("model", r.model), zap.Error(err))
		return ReceiptFields{}
	}
	return ParseReceipt(text)
}

// ParseReceipt decodes the model's JSON answer, tolerating markdown fences.
// Empty strings, the literal "null" and non-ISO dates become nil.
func ParseReceipt(text string) ReceiptFields {
	raw := strings.TrimSpace(codeFence.ReplaceAllString(text, ""))

	var decoded struct {
		ModelNumber  *string `json:"modelNumber"`
		PurchaseDate *string `json:"purchaseDate"`
		StoreName    *string `json:"storeName"`
	}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return ReceiptFields{}
	}

	out := ReceiptFields{
		ModelNumber: clean(decoded.ModelNumber),
		StoreName:   clean(decoded.StoreName),
	}
	if d := clean(decoded.PurchaseDate); d != nil {
		if _, err := time.Parse(time.DateOnly, *d); err == nil {
			out.PurchaseDate = d
		}
	}
	return out
}

func clean(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" || strings.EqualFold(v, "null") {
		return nil
	}
	return &v
}
