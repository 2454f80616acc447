package googleEmbedding

import (
	"errors"
	"testing"

	"github.com/akolanti/RecallAPI/pkg/logger_i"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestDoRetry(t *testing.T) {
	log := logger_i.NewLogger("test")
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"grpc quota", status.Error(codes.ResourceExhausted, "quota"), true},
		{"grpc invalid", status.Error(codes.InvalidArgument, "bad"), false},
		{"rest quota", errors.New("Error 429, Message: Resource has been exhausted, Status: RESOURCE_EXHAUSTED"), true},
		{"other", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := doRetry(tt.err, log); got != tt.want {
				t.Errorf("doRetry(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestGetContent(t *testing.T) {
	content := getContent([]string{"a", "b"})
	if len(content) != 2 {
		t.Fatalf("expected 2 contents, got %d", len(content))
	}
	if content[1].Parts[0].Text != "b" {
		t.Errorf("unexpected text %q", content[1].Parts[0].Text)
	}
}
