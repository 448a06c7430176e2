package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/docqa/internal/domain"
	domeval "github.com/kailas-cloud/docqa/internal/domain/evaluation"
)

// DefaultRelevancyQuestions is how many questions the judge reverse-engineers from an answer.
const DefaultRelevancyQuestions = 3

const statementsPrompt = `Break the answer below into short, self-contained factual statements.
Each statement must be understandable without the others and must not use pronouns.
Reply with a JSON object: {"statements": ["...", "..."]}.

Question: %s

Answer: %s`

const verdictsPrompt = `Decide for every statement whether it can be directly inferred from the context.
Reply with a JSON object: {"verdicts": [{"statement": "...", "reason": "...", "verdict": 1}]}
where verdict is 1 when the context supports the statement and 0 otherwise.
Keep the statements in the given order.

Context:
%s

Statements:
%s`

const questionsPrompt = `Write %d different questions that the answer below would answer.
Also decide whether the answer is noncommittal (evasive, vague or a refusal such as "I don't know").
Reply with a JSON object: {"questions": ["...", "..."], "noncommittal": 0}
where noncommittal is 1 for a noncommittal answer and 0 otherwise.

Answer: %s`

var errNoJSON = errors.New("no JSON object in judge reply")

// Judge scores answers with a language model in the style of RAGAS:
// faithfulness is the share of answer statements the contexts support,
// relevancy is how close questions generated from the answer are to the asked question.
type Judge struct {
	gen       Generator
	emb       Embedder
	questions int
}

// NewJudge creates a judge. emb must embed queries the same way the index does.
func NewJudge(gen Generator, emb Embedder, questions int) *Judge {
	if questions <= 0 {
		questions = DefaultRelevancyQuestions
	}
	return &Judge{gen: gen, emb: emb, questions: questions}
}

// Score computes faithfulness and relevancy concurrently.
func (j *Judge) Score(ctx context.Context, question, answer string, contexts []string) (float64, float64, error) {
	var faithfulness, relevancy float64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := j.faithfulness(gctx, question, answer, contexts)
		if err != nil {
			return fmt.Errorf("faithfulness: %w", err)
		}
		faithfulness = v
		return nil
	})
	g.Go(func() error {
		v, err := j.relevancy(gctx, question, answer)
		if err != nil {
			return fmt.Errorf("relevancy: %w", err)
		}
		relevancy = v
		return nil
	})
	if err := g.Wait(); err != nil {
		return 0, 0, fmt.Errorf("%w: %w", domain.ErrEvaluationFailed, err)
	}
	return faithfulness, relevancy, nil
}

type statementsReply struct {
	Statements []string `json:"statements"`
}

type verdictsReply struct {
	Verdicts []struct {
		Statement string `json:"statement"`
		Verdict   int    `json:"verdict"`
	} `json:"verdicts"`
}

type questionsReply struct {
	Questions    []string `json:"questions"`
	Noncommittal int      `json:"noncommittal"`
}

func (j *Judge) faithfulness(ctx context.Context, question, answer string, contexts []string) (float64, error) {
	var st statementsReply
	if err := j.ask(ctx, fmt.Sprintf(statementsPrompt, question, answer), &st); err != nil {
		return 0, fmt.Errorf("extract statements: %w", err)
	}
	statements := nonEmpty(st.Statements)
	if len(statements) == 0 {
		return 1, nil
	}

	var numbered strings.Builder
	for i, s := range statements {
		fmt.Fprintf(&numbered, "%d. %s\n", i+1, s)
	}
	var vr verdictsReply
	if err := j.ask(ctx, fmt.Sprintf(verdictsPrompt, strings.Join(contexts, "\n\n"), numbered.String()), &vr); err != nil {
		return 0, fmt.Errorf("judge statements: %w", err)
	}
	if len(vr.Verdicts) == 0 {
		return 0, errors.New("judge returned no verdicts")
	}

	// verdicts pair with statements by position; a missing verdict counts as unsupported
	supported := 0
	for i, v := range vr.Verdicts {
		if i < len(statements) && v.Verdict == 1 {
			supported++
		}
	}
	return domeval.Clamp(float64(supported) / float64(len(statements))), nil
}

func (j *Judge) relevancy(ctx context.Context, question, answer string) (float64, error) {
	var qr questionsReply
	if err := j.ask(ctx, fmt.Sprintf(questionsPrompt, j.questions, answer), &qr); err != nil {
		return 0, fmt.Errorf("generate questions: %w", err)
	}
	if qr.Noncommittal == 1 {
		return 0, nil
	}
	generated := nonEmpty(qr.Questions)
	if len(generated) == 0 {
		return 0, errors.New("judge generated no questions")
	}

	orig, err := j.emb.Embed(ctx, question)
	if err != nil {
		return 0, fmt.Errorf("embed question: %w", err)
	}
	var sum float64
	for _, q := range generated {
		e, err := j.emb.Embed(ctx, q)
		if err != nil {
			return 0, fmt.Errorf("embed generated question: %w", err)
		}
		sum += domain.CosineSimilarity(orig.Embedding, e.Embedding)
	}
	return domeval.Clamp(sum / float64(len(generated))), nil
}

// ask sends a JSON-mode prompt and decodes the reply into out.
func (j *Judge) ask(ctx context.Context, prompt string, out any) error {
	res, err := j.gen.Generate(ctx, domain.GenerationRequest{Prompt: prompt, JSON: true})
	if err != nil {
		return err
	}
	raw, err := extractJSON(res.Text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("decode judge reply: %w", err)
	}
	return nil
}

// extractJSON returns the outermost JSON object in s. Models that ignore
// JSON mode wrap the object in prose or code fences.
func extractJSON(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return "", errNoJSON
	}
	return s[start : end+1], nil
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
