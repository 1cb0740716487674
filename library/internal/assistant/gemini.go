package assistant

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ibd-library/library-service/library/config"
	"github.com/ibd-library/library-service/library/internal/model"
	"github.com/ibd-library/library-service/pkg/circuit_breaker"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	sourceGemini     = "gemini"
	temperature      = 0.7
	maxResponseBytes = 1 << 20
)

var errEmptyReply = errors.New("gemini: empty reply")

type part struct {
	Text             string            `json:"text,omitempty"`
	FunctionCall     *functionCall     `json:"functionCall,omitempty"`
	FunctionResponse *functionResponse `json:"functionResponse,omitempty"`
}

type functionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

type functionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type schema struct {
	Type        string            `json:"type"`
	Description string            `json:"description,omitempty"`
	Enum        []string          `json:"enum,omitempty"`
	Properties  map[string]schema `json:"properties,omitempty"`
}

type functionDeclaration struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Parameters  *schema `json:"parameters,omitempty"`
}

type tool struct {
	FunctionDeclarations []functionDeclaration `json:"functionDeclarations"`
}

type generationConfig struct {
	Temperature float64 `json:"temperature"`
}

type generateRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	Tools             []tool           `json:"tools,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

var libraryTools = []tool{{FunctionDeclarations: []functionDeclaration{
	{
		Name:        ActionBorrow,
		Description: "Borrow a book for the current member. Pass the book id when known, otherwise the title.",
		Parameters: &schema{Type: "object", Properties: map[string]schema{
			"book_id":    {Type: "integer", Description: "catalog id of the book"},
			"book_title": {Type: "string", Description: "title of the book"},
		}},
	},
	{
		Name:        ActionReturn,
		Description: "Return a book the current member has borrowed.",
		Parameters: &schema{Type: "object", Properties: map[string]schema{
			"loan_id":    {Type: "integer", Description: "id of the loan"},
			"book_title": {Type: "string", Description: "title of the borrowed book"},
		}},
	},
	{
		Name:        ActionExtend,
		Description: "Extend the due date of one of the current member's loans.",
		Parameters: &schema{Type: "object", Properties: map[string]schema{
			"loan_id":    {Type: "integer", Description: "id of the loan"},
			"book_title": {Type: "string", Description: "title of the borrowed book"},
		}},
	},
	{
		Name:        ActionListLoans,
		Description: "List the current member's loans.",
		Parameters: &schema{Type: "object", Properties: map[string]schema{
			"status": {Type: "string", Enum: []string{"all", "active", "overdue", "returned"}},
		}},
	},
	{
		Name:        ActionSearch,
		Description: "Search the catalog by keyword and category.",
		Parameters: &schema{Type: "object", Properties: map[string]schema{
			"keyword":  {Type: "string", Description: "words from the title or author"},
			"category": {Type: "string"},
		}},
	},
}}}

// Gemini answers through the Generative Language API and lets the model call library actions.
type Gemini struct {
	cfg     config.Assistant
	client  *http.Client
	cb      circuit_breaker.CircuitBreaker
	lib     Library
	actions *Actions
	now     func() time.Time
	log     *zap.Logger
}

func NewGemini(cfg config.Assistant, lib Library, log *zap.Logger) *Gemini {
	log = log.Named("gemini")
	return &Gemini{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		cb:      circuit_breaker.New(20, 30*time.Second, 0.5, 2),
		lib:     lib,
		actions: NewActions(lib, log),
		now:     time.Now,
		log:     log,
	}
}

func (g *Gemini) Respond(ctx context.Context, p Prompt) (Reply, error) {
	bundle, err := LoadBundle(ctx, g.lib)
	if err != nil {
		return Reply{}, errors.Wrap(err, "load context")
	}
	req := generateRequest{
		SystemInstruction: &content{Parts: []part{{Text: g.systemPrompt(ctx, p.MemberID, bundle)}}},
		Contents:          []content{{Role: "user", Parts: []part{{Text: p.Message}}}},
		Tools:             libraryTools,
		GenerationConfig:  generationConfig{Temperature: temperature},
	}

	body, err := g.generate(ctx, req)
	if err != nil {
		return Reply{}, err
	}
	text, calls, err := parseCandidate(body)
	if err != nil {
		return Reply{}, err
	}

	reply := Reply{Sources: []string{sourceGemini}}
	if len(calls) == 0 {
		if text == "" {
			return Reply{}, errEmptyReply
		}
		reply.Text = text
		return reply, nil
	}

	modelTurn := content{Role: "model", Parts: make([]part, 0, len(calls))}
	results := content{Role: "function", Parts: make([]part, 0, len(calls))}
	for i := range calls {
		call := calls[i]
		res := g.actions.Execute(ctx, p.MemberID, call.Name, call.Args)
		g.log.Info("action", zap.String("name", res.Name), zap.Bool("success", res.Success))
		reply.Actions = append(reply.Actions, res)
		modelTurn.Parts = append(modelTurn.Parts, part{FunctionCall: &call})
		results.Parts = append(results.Parts, part{FunctionResponse: &functionResponse{
			Name: call.Name,
			Response: map[string]any{
				"success": res.Success,
				"message": res.Message,
				"data":    res.Data,
			},
		}})
	}
	req.Contents = append(req.Contents, modelTurn, results)

	body, err = g.generate(ctx, req)
	if err == nil {
		text, _, err = parseCandidate(body)
	}
	if err != nil || text == "" {
		// the actions already ran, so report them instead of failing over
		g.log.Warn("follow-up generation failed", zap.Error(err))
		text = summarizeActions(reply.Actions)
	}
	reply.Text = text
	return reply, nil
}

func (g *Gemini) systemPrompt(ctx context.Context, memberID int64, b Bundle) string {
	var sb strings.Builder
	sb.WriteString("You are the assistant of a small library. Answer briefly and politely in the language of the question.\n")
	sb.WriteString("Use only the information below. When the member asks to borrow, return, extend or list loans, call the matching function.\n\n")
	fmt.Fprintf(&sb, "Today: %s\nOpening hours: %s\n%s\nContact: %s\n", g.now().Format("2006-01-02"), OperatingHours, ClosedDays, Contact)
	if memberID == 0 {
		sb.WriteString("The user is not logged in; member actions are unavailable.\n")
	} else if m, err := g.lib.GetMember(ctx, memberID); err == nil {
		fmt.Fprintf(&sb, "The user is member %d, %s.\n", m.ID, m.Name)
	}
	sb.WriteString("\n")
	sb.WriteString(b.String())
	return sb.String()
}

func (g *Gemini) generate(ctx context.Context, req generateRequest) ([]byte, error) {
	var out []byte
	err := g.cb.Call(func() (err error) {
		out, err = g.post(ctx, req)
		return err
	})
	return out, err
}

func (g *Gemini) post(ctx context.Context, req generateRequest) ([]byte, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(g.cfg.Endpoint, "/"), url.PathEscape(g.cfg.Model), url.QueryEscape(g.cfg.APIKey))
	r, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	r.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(r)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(body, "error.message").String()
		return nil, errors.Errorf("gemini: status %d: %s", resp.StatusCode, msg)
	}
	return body, nil
}

func parseCandidate(body []byte) (string, []functionCall, error) {
	parts := gjson.GetBytes(body, "candidates.0.content.parts")
	if !parts.IsArray() {
		return "", nil, errEmptyReply
	}
	var (
		texts []string
		calls []functionCall
	)
	for _, p := range parts.Array() {
		if t := p.Get("text"); t.Exists() {
			texts = append(texts, t.String())
		}
		fc := p.Get("functionCall")
		if !fc.Exists() {
			continue
		}
		call := functionCall{Name: fc.Get("name").String(), Args: map[string]any{}}
		if raw := fc.Get("args").Raw; raw != "" {
			if err := json.Unmarshal([]byte(raw), &call.Args); err != nil {
				return "", nil, errors.Wrap(err, "gemini: function args")
			}
		}
		calls = append(calls, call)
	}
	return strings.TrimSpace(strings.Join(texts, "")), calls, nil
}

func summarizeActions(actions []model.ActionResult) string {
	lines := make([]string, len(actions))
	for i, a := range actions {
		lines[i] = a.Message
	}
	return strings.Join(lines, "\n")
}
