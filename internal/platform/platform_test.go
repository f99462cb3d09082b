package platform_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/vizdesk/internal/platform"
)

type stubPlatform struct {
	shareErr error
	clipErr  error
	copied   []string
	notices  []string
}

func (s *stubPlatform) Share(context.Context, platform.Payload) error { return s.shareErr }

func (s *stubPlatform) WriteClipboard(_ context.Context, text string) error {
	if s.clipErr != nil {
		return s.clipErr
	}
	s.copied = append(s.copied, text)
	return nil
}

func (s *stubPlatform) Notify(msg string) { s.notices = append(s.notices, msg) }

func TestShareChain(t *testing.T) {
	payload := platform.Payload{Title: "Sea level", Text: "Check out this visualization: Sea level", URL: "https://x/detail/viz/1"}

	native := &stubPlatform{}
	require.Equal(t, platform.MethodNative, platform.Share(context.Background(), native, payload))
	require.Empty(t, native.copied)
	require.Empty(t, native.notices)

	clip := &stubPlatform{shareErr: platform.ErrUnsupported}
	require.Equal(t, platform.MethodClipboard, platform.Share(context.Background(), clip, payload))
	require.Equal(t, []string{"Sea level - https://x/detail/viz/1"}, clip.copied)
	require.Equal(t, []string{platform.CopiedNotice}, clip.notices)

	bare := &stubPlatform{shareErr: platform.ErrUnsupported, clipErr: errors.New("denied")}
	require.Equal(t, platform.MethodNotice, platform.Share(context.Background(), bare, payload))
	require.Equal(t, []string{"Sea level - https://x/detail/viz/1"}, bare.notices)
}

func TestTerminalClipboardWritesOSC52(t *testing.T) {
	t.Setenv("TMUX", "")
	t.Setenv("TERM", "xterm-256color")

	var out bytes.Buffer
	var notices []string
	term := platform.NewTerminal(&out, func(msg string) { notices = append(notices, msg) })

	require.ErrorIs(t, term.Share(context.Background(), platform.Payload{}), platform.ErrUnsupported)
	require.NoError(t, term.WriteClipboard(context.Background(), "hello"))
	require.Contains(t, out.String(), base64.StdEncoding.EncodeToString([]byte("hello")))
	require.Contains(t, out.String(), "]52;")

	term.Notify("done")
	require.Equal(t, []string{"done"}, notices)
}

func TestTerminalClipboardHonoursContext(t *testing.T) {
	var out bytes.Buffer
	term := platform.NewTerminal(&out, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, term.WriteClipboard(ctx, "x"), context.Canceled)
	require.Zero(t, out.Len())

	term.Notify("ignored")
}
