package extract

import (
	"context"
	"testing"

	"welding-recommender-be/pkg/guide"
	"welding-recommender-be/pkg/llm"
)

func TestParseReply(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    guide.Requirements
		wantErr bool
	}{
		{
			name:  "clean JSON",
			reply: `{"powersource": {"current": "300A"}}`,
			want:  guide.Requirements{guide.CategoryPowerSource: {"current": "300A"}},
		},
		{
			name:  "prose around JSON",
			reply: "Sure! Here is the extraction:\n{\"torch\": {\"length\": \"4m\"}}\nLet me know if you need more.",
			want:  guide.Requirements{guide.CategoryTorch: {"length": "4m"}},
		},
		{
			name:  "alias category name normalized",
			reply: `{"Power Source": {"current": "500A"}, "gun": {"length": "3m"}}`,
			want: guide.Requirements{
				guide.CategoryPowerSource: {"current": "500A"},
				guide.CategoryTorch:       {"length": "3m"},
			},
		},
		{
			name:  "unknown categories dropped",
			reply: `{"warpdrive": {"x": "y"}, "cooler": {"type": "water"}}`,
			want:  guide.Requirements{guide.CategoryCooler: {"type": "water"}},
		},
		{
			name:  "empty values dropped",
			reply: `{"cooler": {"type": "  "}}`,
			want:  guide.Requirements{},
		},
		{
			name:    "no JSON at all",
			reply:   "I could not find any specifications.",
			wantErr: true,
		},
		{
			name:    "malformed JSON",
			reply:   `{"cooler": {`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseReply(tt.reply)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseReply: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for c, spec := range tt.want {
				for k, v := range spec {
					if got[c][k] != v {
						t.Errorf("got[%s][%s] = %q, want %q", c, k, got[c][k], v)
					}
				}
			}
		})
	}
}

type cannedProvider struct {
	reply string
	err   error
}

func (p *cannedProvider) Generate(_ context.Context, _ string, _ ...llm.Option) (string, error) {
	return p.reply, p.err
}

func (p *cannedProvider) Chat(_ context.Context, _ []llm.Message, _ ...llm.Option) (string, error) {
	return p.reply, p.err
}

func TestExtractToleratesGarbageReply(t *testing.T) {
	e := NewLLMExtractor(&cannedProvider{reply: "no structured data here"}, guide.DefaultRulebook(), nil)

	got, err := e.Extract(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("garbage reply must yield an empty update, got %v", got)
	}
}

func TestExtractReturnsPerTurnUpdateOnly(t *testing.T) {
	e := NewLLMExtractor(
		&cannedProvider{reply: `{"torch": {"length": "4m"}}`},
		guide.DefaultRulebook(),
		nil,
	)

	current := guide.Requirements{guide.CategoryPowerSource: {"current": "300A"}}
	got, err := e.Extract(context.Background(), "and a four meter torch", current)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if _, ok := got[guide.CategoryPowerSource]; ok {
		t.Error("update must not echo previously known requirements")
	}
	if got[guide.CategoryTorch]["length"] != "4m" {
		t.Errorf("got %v", got)
	}
}
