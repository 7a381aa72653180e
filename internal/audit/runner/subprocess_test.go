package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/walt0white1/prospectflow-sub000/internal/prospect"
)

// TestHelperProcess is not a real test. It stands in for the audit child
// when re-executed by helperRunner.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("PROSPECT_WANT_HELPER_PROCESS") != "1" {
		return
	}
	flags, positional := childArgs(os.Args)
	url := ""
	if len(positional) == 1 {
		url = positional[0]
	}
	shots := false
	for _, f := range flags {
		shots = shots || f == "--screenshots"
	}
	switch os.Getenv("PROSPECT_HELPER_MODE") {
	case "ok":
		_ = WriteChildOutput(os.Stdout, prospect.AuditResult{
			URL:         url,
			HasSSL:      true,
			SEOScore:    70,
			TechStack:   []string{"WordPress"},
			Issues:      []prospect.Issue{},
			Screenshots: screenshotStub(shots),
		}, nil)
	case "error":
		_ = WriteChildOutput(os.Stdout, prospect.AuditResult{}, errors.New("browser crashed"))
		os.Exit(1)
	case "silent":
		fmt.Fprintln(os.Stderr, "segfault in renderer")
		os.Exit(2)
	case "hang":
		time.Sleep(time.Minute)
	case "garbage":
		fmt.Fprint(os.Stdout, "not json")
	case "twice":
		fmt.Fprint(os.Stdout, `{"url":"a"}{"url":"b"}`)
	}
	os.Exit(0)
}

// childArgs splits the helper's argv the way the child command parses it:
// the test runner's own arguments end at the first "--", the child's flags
// end at the second.
func childArgs(argv []string) (flags, positional []string) {
	seen := 0
	for i, a := range argv {
		switch {
		case a == "--" && seen == 0:
			seen = 1
		case a == "--":
			return flags, argv[i+1:]
		case seen == 1:
			flags = append(flags, a)
		}
	}
	return flags, nil
}

func screenshotStub(enabled bool) []prospect.Screenshot {
	if !enabled {
		return nil
	}
	return []prospect.Screenshot{{Viewport: "desktop", URI: "memory://x.png", ContentType: "image/png"}}
}

func helperRunner(mode string, timeout time.Duration) Subprocess {
	return Subprocess{
		Path:    os.Args[0],
		Args:    []string{"-test.run=TestHelperProcess", "--"},
		Env:     append(os.Environ(), "PROSPECT_WANT_HELPER_PROCESS=1", "PROSPECT_HELPER_MODE="+mode),
		Timeout: timeout,
	}
}

func TestSubprocessSuccess(t *testing.T) {
	t.Parallel()

	result, err := helperRunner("ok", 10*time.Second).Run(context.Background(),
		prospect.AuditRequest{URL: "https://garage-dupont.fr", Screenshots: true})
	require.NoError(t, err)
	require.Equal(t, "https://garage-dupont.fr", result.URL)
	require.True(t, result.HasSSL)
	require.Equal(t, 70, result.SEOScore)
	require.Len(t, result.Screenshots, 1)
}

func TestSubprocessPassesURLAsPositional(t *testing.T) {
	t.Parallel()

	for _, target := range []string{"-h", "--config=/nonexistent/x.yaml"} {
		result, err := helperRunner("ok", 10*time.Second).Run(context.Background(),
			prospect.AuditRequest{URL: target})
		require.NoError(t, err, target)
		require.Equal(t, target, result.URL)
		require.Empty(t, result.Screenshots)
	}
}

func TestChildArgs(t *testing.T) {
	t.Parallel()

	flags, positional := childArgs([]string{"prog", "-test.run=X", "--", "--screenshots", "--", "-h"})
	require.Equal(t, []string{"--screenshots"}, flags)
	require.Equal(t, []string{"-h"}, positional)
}

func TestSubprocessFailureModesAreDistinct(t *testing.T) {
	t.Parallel()

	t.Run("error payload", func(t *testing.T) {
		t.Parallel()
		_, err := helperRunner("error", 10*time.Second).Run(context.Background(), prospect.AuditRequest{URL: "https://x.fr"})
		var auditErr *AuditError
		require.ErrorAs(t, err, &auditErr)
		require.Equal(t, "browser crashed", auditErr.Message)
		require.NotErrorIs(t, err, ErrNoOutput)
		require.NotErrorIs(t, err, ErrTimeout)
	})

	t.Run("no output", func(t *testing.T) {
		t.Parallel()
		_, err := helperRunner("silent", 10*time.Second).Run(context.Background(), prospect.AuditRequest{URL: "https://x.fr"})
		require.ErrorIs(t, err, ErrNoOutput)
		require.NotErrorIs(t, err, ErrTimeout)
	})

	t.Run("timeout", func(t *testing.T) {
		t.Parallel()
		_, err := helperRunner("hang", 300*time.Millisecond).Run(context.Background(), prospect.AuditRequest{URL: "https://x.fr"})
		require.ErrorIs(t, err, ErrTimeout)
		require.NotErrorIs(t, err, ErrNoOutput)
	})

	t.Run("garbage", func(t *testing.T) {
		t.Parallel()
		_, err := helperRunner("garbage", 10*time.Second).Run(context.Background(), prospect.AuditRequest{URL: "https://x.fr"})
		require.ErrorIs(t, err, ErrBadOutput)
	})

	t.Run("two documents", func(t *testing.T) {
		t.Parallel()
		_, err := helperRunner("twice", 10*time.Second).Run(context.Background(), prospect.AuditRequest{URL: "https://x.fr"})
		require.ErrorIs(t, err, ErrBadOutput)
	})
}

func TestSubprocessParentCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	_, err := helperRunner("hang", 10*time.Second).Run(ctx, prospect.AuditRequest{URL: "https://x.fr"})
	require.ErrorIs(t, err, context.Canceled)
	require.NotErrorIs(t, err, ErrTimeout)
}

func TestWriteAndDecodeChildOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteChildOutput(&buf, prospect.AuditResult{}, errors.New("navigation refused")))
	require.JSONEq(t, `{"error":"navigation refused"}`, buf.String())

	_, err := DecodeChildOutput(buf.Bytes())
	var auditErr *AuditError
	require.ErrorAs(t, err, &auditErr)
	require.Equal(t, "audit failed: navigation refused", err.Error())
}

type stubAuditor struct {
	result prospect.AuditResult
	err    error
}

func (s stubAuditor) Audit(context.Context, prospect.AuditRequest) (prospect.AuditResult, error) {
	return s.result, s.err
}

func TestInProcessDelegates(t *testing.T) {
	t.Parallel()

	want := prospect.AuditResult{URL: "https://x.fr/", SEOScore: 40}
	got, err := InProcess{Engine: stubAuditor{result: want}}.Run(context.Background(), prospect.AuditRequest{URL: "x.fr"})
	require.NoError(t, err)
	require.Equal(t, want, got)

	_, err = InProcess{Engine: stubAuditor{err: errors.New("boom")}}.Run(context.Background(), prospect.AuditRequest{})
	require.EqualError(t, err, "boom")
}

var _ Runner = Subprocess{}
var _ Runner = InProcess{}
