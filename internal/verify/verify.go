// Package verify provides human-verification tokens for downloads that
// the backend gates. A token is good for one download attempt only.
package verify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xymaxim/vdl/internal/exec"
)

// ErrNoToken is returned when a source has no token to give.
var ErrNoToken = errors.New("no verification token available")

// Attempt describes the download a token is requested for.
type Attempt struct {
	URL      string
	FormatID string
}

// TokenSource hands out a fresh token for each download attempt.
type TokenSource interface {
	Token(ctx context.Context, attempt Attempt) (string, error)
}

// StaticToken hands out a fixed token once.
type StaticToken struct {
	mu    sync.Mutex
	token string
}

// NewStaticToken creates a source holding token.
func NewStaticToken(token string) *StaticToken {
	return &StaticToken{token: strings.TrimSpace(token)}
}

func (s *StaticToken) Token(_ context.Context, _ Attempt) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token == "" {
		return "", ErrNoToken
	}
	token := s.token
	s.token = ""
	return token, nil
}

// CommandSource runs a helper command for every attempt and reads the
// token from its standard output. The helper gets the attempt in the
// VDL_URL and VDL_FORMAT_ID environment variables; its standard error is
// shown to the user.
type CommandSource struct {
	Runner exec.Runner
	Args   []string
}

// NewCommandSource parses a helper command line such as
// "solve-captcha --site example".
func NewCommandSource(commandLine string) (*CommandSource, error) {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return nil, errors.New("empty verification command")
	}
	return &CommandSource{
		Runner: exec.NewCommandRunner(fields[0]),
		Args:   fields[1:],
	}, nil
}

func (s *CommandSource) Token(ctx context.Context, attempt Attempt) (string, error) {
	result, err := s.Runner.RunWith(
		[]exec.Option{
			exec.WithContext(ctx),
			exec.WithEnv(
				"VDL_URL="+attempt.URL,
				"VDL_FORMAT_ID="+attempt.FormatID,
			),
		},
		s.Args...,
	)
	if err != nil {
		return "", fmt.Errorf("running verification command: %w", err)
	}

	token := strings.TrimSpace(string(result.Stdout))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}
