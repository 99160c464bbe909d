package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/virallabs/viralbot/pkg/intake"
	"github.com/virallabs/viralbot/pkg/logger"
	"github.com/virallabs/viralbot/pkg/utils"
)

const analysisPrompt = `Analyze this video cover image and provide a comprehensive analysis including:

1. **Content Description**: What is shown in the image?
2. **Visual Elements**: Colors, composition, style, quality
3. **Potential Context**: What type of video this might be (tutorial, entertainment, news, etc.)
4. **Target Audience**: Who might be interested in this content?
5. **Viral Potential**: What makes this content potentially engaging or shareable?
6. **Keywords/Tags**: Suggest relevant tags for categorization

Provide your analysis in a clear, structured format that would be useful for content creators and marketers.`

// Analyzer sends cover images to a vision-capable model and formats the
// returned text for the chat.
type Analyzer struct {
	client    openai.Client
	model     string
	maxTokens int
}

func New(apiKey, model string, maxTokens int) *Analyzer {
	if model == "" {
		model = "gpt-4o"
	}
	if maxTokens <= 0 {
		maxTokens = 1000
	}
	return &Analyzer{
		client:    openai.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: maxTokens,
	}
}

// Describe submits the cover image with the fixed analysis prompt and
// returns the model's raw text. An empty completion is an error.
func (a *Analyzer) Describe(ctx context.Context, imagePath string) (string, error) {
	mimeType, b64, err := utils.LoadAndEncodeImage(imagePath)
	if err != nil {
		return "", err
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, b64)

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(a.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(analysisPrompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: dataURL,
				}),
			}),
		},
		MaxTokens:   openai.Int(int64(a.maxTokens)),
		Temperature: openai.Float(0.7),
	}

	completion, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("vision request failed: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no response from model %s", a.model)
	}

	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("model %s returned an empty analysis", a.model)
	}

	logger.InfoCF("analyzer", "Image analysis completed", map[string]interface{}{
		"model":         a.model,
		"input_tokens":  completion.Usage.PromptTokens,
		"output_tokens": completion.Usage.CompletionTokens,
	})

	return text, nil
}

// FormatReport wraps the raw analysis with the video metadata header and the
// attribution footer, Markdown formatted for Telegram.
func FormatReport(analysis string, info intake.VideoInfo) string {
	var b strings.Builder
	b.WriteString("🎬 **Video Analysis Report**\n\n")

	header := false
	if info.Duration > 0 {
		fmt.Fprintf(&b, "⏱️ **Duration**: %d seconds\n", info.Duration)
		header = true
	}
	if info.FileSize > 0 {
		fmt.Fprintf(&b, "📁 **Size**: %.2f MB\n", float64(info.FileSize)/(1024*1024))
		header = true
	}
	if header {
		b.WriteString("\n")
	}

	b.WriteString(analysis)
	b.WriteString("\n\n🤖 *Analysis powered by GPT-4 Vision*")

	return b.String()
}
