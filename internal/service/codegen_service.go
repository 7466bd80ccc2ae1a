package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"vividly/internal/metrics"

	"github.com/sirupsen/logrus"
)

// TextGenerator is the generative backend: a prompt goes in, free text
// comes out. Nothing is assumed about the shape of the output.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

const (
	LanguageHTML  = "html"
	LanguageReact = "react"
)

type CodegenService struct {
	generator TextGenerator
	logger    logrus.FieldLogger
}

func NewCodegenService(generator TextGenerator, logger logrus.FieldLogger) *CodegenService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CodegenService{generator: generator, logger: logger}
}

func (s *CodegenService) Available() bool {
	return s != nil && s.generator != nil
}

func (s *CodegenService) HTML(ctx context.Context, vibe string) (string, error) {
	return s.generateCode(ctx, "html", fmt.Sprintf(htmlPrompt, vibe))
}

func (s *CodegenService) React(ctx context.Context, vibe string) (string, error) {
	return s.generateCode(ctx, "react", fmt.Sprintf(reactPrompt, vibe))
}

func (s *CodegenService) CSS(ctx context.Context, vibe string) (string, error) {
	return s.generateCode(ctx, "css", fmt.Sprintf(cssPrompt, vibe))
}

func (s *CodegenService) Optimize(ctx context.Context, code string, language string) (string, error) {
	if strings.TrimSpace(language) == "" {
		language = LanguageHTML
	}
	return s.generateCode(ctx, "optimize", fmt.Sprintf(optimizePrompt, language, code))
}

// ForLanguage picks the generator used for project-bound generation.
func (s *CodegenService) ForLanguage(ctx context.Context, language string, vibe string) (string, error) {
	switch language {
	case "", LanguageHTML:
		return s.HTML(ctx, vibe)
	case LanguageReact:
		return s.React(ctx, vibe)
	default:
		return "", ErrInvalidLanguage
	}
}

// ProjectStructure asks for a JSON architecture outline and decodes it.
func (s *CodegenService) ProjectStructure(ctx context.Context, vibe string) (map[string]any, error) {
	text, err := s.generate(ctx, "project_structure", fmt.Sprintf(structurePrompt, vibe))
	if err != nil {
		return nil, err
	}

	var structure map[string]any
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &structure); err != nil {
		s.logger.WithError(err).Warn("generated structure is not valid JSON")
		return nil, fmt.Errorf("%w: decode structure: %v", ErrGenerationFailed, err)
	}
	return structure, nil
}

func (s *CodegenService) generateCode(ctx context.Context, kind string, prompt string) (string, error) {
	text, err := s.generate(ctx, kind, prompt)
	if err != nil {
		return "", err
	}
	code := stripCodeFence(text)
	if code == "" {
		return "", fmt.Errorf("%w: empty response", ErrGenerationFailed)
	}
	return code, nil
}

func (s *CodegenService) generate(ctx context.Context, kind string, prompt string) (string, error) {
	if !s.Available() {
		return "", ErrGeneratorUnavailable
	}

	start := time.Now()
	text, err := s.generator.Generate(ctx, prompt)
	metrics.CodeGenerationDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CodeGenerations.WithLabelValues(kind, "error").Inc()
		s.logger.WithError(err).WithField("kind", kind).Error("code generation failed")
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	metrics.CodeGenerations.WithLabelValues(kind, "success").Inc()
	s.logger.WithFields(logrus.Fields{"kind": kind, "elapsed": time.Since(start).String()}).Info("code generated")
	return text, nil
}

// stripCodeFence removes a surrounding markdown fence such as ```html ... ```.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		if idx := strings.IndexByte(text, '\n'); idx >= 0 {
			text = text[idx+1:]
		} else {
			text = strings.TrimPrefix(text, "```")
		}
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

const htmlPrompt = `You are an expert web developer. Based on the following vibe description, generate a complete, modern HTML website with embedded CSS and JavaScript.

Vibe Description:
%s

Requirements:
1. Generate a complete HTML5 document
2. Include responsive CSS (mobile-first approach)
3. Include smooth animations and transitions
4. Use modern design patterns and interactive elements
5. Ensure accessibility (ARIA labels, semantic HTML)
6. Use Google Fonts for typography

Generate only the HTML code, no explanations. Start with <!DOCTYPE html> and end with </html>.`

const reactPrompt = `You are an expert React developer. Based on the following vibe description, generate a complete React component with Tailwind CSS.

Vibe Description:
%s

Requirements:
1. A functional component using hooks
2. Tailwind CSS for styling
3. Accessible, interactive elements
4. TypeScript types and the necessary imports
5. Error handling where data is loaded

Generate only the component code.`

const cssPrompt = `You are an expert CSS designer. Based on the following vibe description, generate modern CSS that captures the essence of the design.

Vibe Description:
%s

Requirements:
1. Use CSS Grid and Flexbox
2. Include animations and transitions
3. Use CSS variables for colors and spacing
4. Include responsive design and accessibility considerations

Generate only the CSS code, no explanations.`

const optimizePrompt = `You are an expert code optimizer. Optimize the following %s code for performance, best practices, accessibility, SEO, security and readability.

Code:
%s

Provide only the optimized code, no explanations.`

const structurePrompt = `You are an expert web architect. Based on the following vibe description, generate a project structure and component breakdown.

Vibe Description:
%s

Respond with JSON only, using this shape:
{
  "folder_structure": [...],
  "components": [...],
  "pages": [...],
  "styling": "...",
  "libraries": [...],
  "performance": [...],
  "seo": [...],
  "accessibility": [...],
  "compatibility": [...]
}`
