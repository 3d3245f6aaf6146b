package assistant

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"appliance-warranty-backend/config"
)

// Fixed replies used when the model cannot answer.
const (
	ReplyNotConfigured = "AIサービスの設定が完了していません。"
	ReplyUnavailable   = "AIサービスに一時的な問題が発生しました。しばらくしてから再試行してください。"
	ReplyAcknowledged  = "ご質問を承りました。"
)

// Message is one chat turn. Role is "user" or "assistant".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Product identifies the appliance the conversation is about.
type Product struct {
	Name  string `json:"name"`
	Brand string `json:"brand"`
	Model string `json:"model"`
}

const systemPrompt = `あなたは「replia」というAI家電サポートアシスタントです。日本の家電製品のトラブル解決を専門としています。
%PRODUCT%
以下のガイドラインで回答してください：
- 日本語で丁寧かつ簡潔に回答する
- ユーザーが自分で試せる具体的な手順を①②③のように番号で説明する
- エラーコードや症状に応じた具体的なアドバイスをする
- 手順の動画が役立つ場合は [VIDEO: 検索キーワード] の形式で1つだけ示す
- 解決しない場合は「🔧 修理依頼」ボタンを使うよう案内する
- 500文字以内で回答する
- 同じ答えを繰り返さず、会話の流れに合わせて回答を変える`

// Chat answers troubleshooting questions.
type Chat struct {
	gen       Generator
	model     string
	maxTokens int32
	temp      float32
	timeout   time.Duration
	log       *zap.Logger
}

// NewChat builds a chat client. A nil generator means the assistant is not
// configured and every reply is ReplyNotConfigured.
func NewChat(gen Generator, cfg config.AssistantConfig, log *zap.Logger) *Chat {
	if log == nil {
		log = zap.NewNop()
	}
	return &Chat{
		gen:       gen,
		model:     cfg.ChatModel,
		maxTokens: cfg.MaxOutputTokens,
		temp:      cfg.Temperature,
		timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
		log:       log,
	}
}

// Configured reports whether a model backs the chat.
func (c *Chat) Configured() bool { return c.gen != nil }

// Reply returns the assistant's next message for history.
func (c *Chat) Reply(ctx context.Context, history []Message, product *Product) string {
	if c.gen == nil {
		return ReplyNotConfigured
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	contents := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		role := genai.Role(genai.RoleUser)
		if m.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	temp := c.temp
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemInstruction(product), genai.RoleUser),
		Temperature:       &temp,
		MaxOutputTokens:   c.maxTokens,
	}

	text, err := c.gen.Generate(ctx, c.model, contents, cfg)
	switch {
	case errors.Is(err, ErrEmptyResponse):
		return ReplyAcknowledged
	case err != nil:
		c.log.Warn("chat generation failed", zap.String("model", c.model), zap.Error(err))
		return ReplyUnavailable
	}
	return text
}

// SystemInstruction renders the support persona, with a product line when
// the product has a name.
func SystemInstruction(p *Product) string {
	line := ""
	if p != nil && strings.TrimSpace(p.Name) != "" {
		line = strings.Join(strings.Fields("【対象製品】"+p.Brand+" "+p.Name+" "+p.Model), " ") + "\n"
	}
	return strings.Replace(systemPrompt, "%PRODUCT%\n", line, 1)
}
