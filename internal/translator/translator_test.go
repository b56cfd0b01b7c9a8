package translator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"layout-translator/internal/config"
	"layout-translator/internal/lang"
)

type fakeModel struct {
	mu    sync.Mutex
	calls [][]*schema.Message
	reply func(n int, ctx context.Context, msgs []*schema.Message) (string, error)

	active    atomic.Int32
	maxActive atomic.Int32
	delay     time.Duration
}

func (f *fakeModel) Generate(ctx context.Context, in []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	cur := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		m := f.maxActive.Load()
		if cur <= m || f.maxActive.CompareAndSwap(m, cur) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.calls = append(f.calls, in)
	n := len(f.calls)
	f.mu.Unlock()

	if f.reply == nil {
		return schema.AssistantMessage("번역문", nil), nil
	}
	out, err := f.reply(n, ctx, in)
	if err != nil {
		return nil, err
	}
	return schema.AssistantMessage(out, nil), nil
}

func (f *fakeModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

func (f *fakeModel) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeModel) lastCall() []*schema.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

type plainBackend struct {
	model *fakeModel
	loads atomic.Int32
	err   error
}

func (b *plainBackend) Load(context.Context) (model.BaseChatModel, error) {
	b.loads.Add(1)
	if b.err != nil {
		return nil, b.err
	}
	if b.model == nil {
		return nil, nil
	}
	return b.model, nil
}

type sleepyBackend struct {
	plainBackend
	offloadErr error
	offloads   atomic.Int32
	restores   atomic.Int32
}

func (b *sleepyBackend) Offload(context.Context) error {
	b.offloads.Add(1)
	return b.offloadErr
}

func (b *sleepyBackend) Restore(context.Context) error {
	b.restores.Add(1)
	return nil
}

func newService(t *testing.T, b Backend, opts HandleOptions, s Settings) *Service {
	t.Helper()
	if s.RetryDelay == 0 {
		s.RetryDelay = time.Millisecond
	}
	svc, err := NewService(NewHandle(b, opts), s)
	require.NoError(t, err)
	return svc
}

func TestParseUnloadMode(t *testing.T) {
	for in, want := range map[string]UnloadMode{"delete": UnloadDelete, "": UnloadDelete, "offload": UnloadOffload, "cpu": UnloadOffload} {
		got, err := ParseUnloadMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseUnloadMode("gpu")
	assert.Error(t, err)
}

func TestAcquireLoadsOnce(t *testing.T) {
	b := &plainBackend{model: &fakeModel{}}
	h := NewHandle(b, HandleOptions{})
	assert.Equal(t, Unloaded, h.State())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, h.Acquire(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), b.loads.Load())
	assert.Equal(t, Loaded, h.State())
}

func TestAcquireLoadError(t *testing.T) {
	b := &plainBackend{err: errors.New("no such model")}
	h := NewHandle(b, HandleOptions{})
	err := h.Acquire(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such model")
	assert.Equal(t, Unloaded, h.State())

	nilBackend := &plainBackend{}
	err = NewHandle(nilBackend, HandleOptions{}).Acquire(context.Background())
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestGenerateIsSerialized(t *testing.T) {
	fm := &fakeModel{delay: 2 * time.Millisecond}
	svc := newService(t, &plainBackend{model: fm}, HandleOptions{}, Settings{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Translate(context.Background(), "Hello world", lang.Korean)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 8, fm.callCount())
	assert.Equal(t, int32(1), fm.maxActive.Load())
}

func TestTranslateUsesSegmentPrompt(t *testing.T) {
	fm := &fakeModel{reply: func(int, context.Context, []*schema.Message) (string, error) {
		return "```text\n안녕하세요\n```</s> trailing", nil
	}}
	svc := newService(t, &plainBackend{model: fm}, HandleOptions{}, Settings{})

	out, err := svc.Translate(context.Background(), "Hello {name}", lang.Korean)
	require.NoError(t, err)
	assert.Equal(t, "안녕하세요", out)

	msgs := fm.lastCall()
	require.Len(t, msgs, 2)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "Output only Korean")
	assert.Contains(t, msgs[1].Content, "Hello {name}")
}

func TestReleaseDelete(t *testing.T) {
	b := &plainBackend{model: &fakeModel{}}
	svc := newService(t, b, HandleOptions{Mode: UnloadDelete}, Settings{UnloadAfterJob: true})
	ctx := context.Background()

	_, err := svc.Translate(ctx, "Hello world", lang.Korean)
	require.NoError(t, err)
	assert.True(t, svc.Handle().HasTemplates())

	svc.EndJob(ctx)
	assert.Equal(t, Unloaded, svc.Handle().State())
	assert.False(t, svc.Handle().HasTemplates())

	_, err = svc.Translate(ctx, "Hello again", lang.Korean)
	require.NoError(t, err)
	assert.Equal(t, int32(2), b.loads.Load())
}

func TestReleaseKeepsTemplates(t *testing.T) {
	b := &plainBackend{model: &fakeModel{}}
	svc := newService(t, b, HandleOptions{KeepTemplates: true}, Settings{UnloadAfterJob: true})
	ctx := context.Background()

	_, err := svc.Translate(ctx, "Hello world", lang.Korean)
	require.NoError(t, err)
	svc.EndJob(ctx)
	assert.Equal(t, Unloaded, svc.Handle().State())
	assert.True(t, svc.Handle().HasTemplates())
}

func TestEndJobWithoutUnloadKeepsModel(t *testing.T) {
	b := &plainBackend{model: &fakeModel{}}
	svc := newService(t, b, HandleOptions{}, Settings{})
	ctx := context.Background()

	require.NoError(t, svc.Acquire(ctx))
	svc.EndJob(ctx)
	assert.Equal(t, Loaded, svc.Handle().State())
}

func TestReleaseOffload(t *testing.T) {
	b := &sleepyBackend{plainBackend: plainBackend{model: &fakeModel{}}}
	svc := newService(t, b, HandleOptions{Mode: UnloadOffload}, Settings{UnloadAfterJob: true})
	ctx := context.Background()

	_, err := svc.Translate(ctx, "Hello world", lang.Korean)
	require.NoError(t, err)
	svc.EndJob(ctx)
	assert.Equal(t, Offloaded, svc.Handle().State())
	assert.Equal(t, int32(1), b.offloads.Load())

	_, err = svc.Translate(ctx, "Hello again", lang.Korean)
	require.NoError(t, err)
	assert.Equal(t, int32(1), b.restores.Load())
	assert.Equal(t, int32(1), b.loads.Load())
	assert.Equal(t, Loaded, svc.Handle().State())
}

func TestOffloadFallsBackToDelete(t *testing.T) {
	ctx := context.Background()

	failing := &sleepyBackend{plainBackend: plainBackend{model: &fakeModel{}}, offloadErr: errors.New("404")}
	h := NewHandle(failing, HandleOptions{Mode: UnloadOffload})
	require.NoError(t, h.Acquire(ctx))
	h.Release(ctx)
	assert.Equal(t, Unloaded, h.State())

	plain := &plainBackend{model: &fakeModel{}}
	h = NewHandle(plain, HandleOptions{Mode: UnloadOffload})
	require.NoError(t, h.Acquire(ctx))
	h.Release(ctx)
	assert.Equal(t, Unloaded, h.State())
}

func TestRetryOnTransientError(t *testing.T) {
	fm := &fakeModel{reply: func(n int, _ context.Context, _ []*schema.Message) (string, error) {
		if n == 1 {
			return "", errors.New("read: connection reset by peer")
		}
		return "안녕", nil
	}}
	svc := newService(t, &plainBackend{model: fm}, HandleOptions{}, Settings{MaxRetries: 2})

	out, err := svc.Translate(context.Background(), "Hi", lang.Korean)
	require.NoError(t, err)
	assert.Equal(t, "안녕", out)
	assert.Equal(t, 2, fm.callCount())
}

func TestMaxRetriesCountsRepeats(t *testing.T) {
	failing := func() *fakeModel {
		return &fakeModel{reply: func(int, context.Context, []*schema.Message) (string, error) {
			return "", errors.New("status code: 503, service unavailable")
		}}
	}
	tests := []struct {
		retries int
		calls   int
	}{
		{0, 1},
		{1, 2},
		{2, 3},
		{-1, DefaultMaxRetries + 1},
	}
	for _, tt := range tests {
		fm := failing()
		svc := newService(t, &plainBackend{model: fm}, HandleOptions{}, Settings{MaxRetries: tt.retries})
		_, err := svc.Translate(context.Background(), "Hi", lang.Korean)
		require.Error(t, err, "retries %d", tt.retries)
		assert.Equal(t, tt.calls, fm.callCount(), "retries %d", tt.retries)
	}
}

func TestNoRetryOnAuthError(t *testing.T) {
	fm := &fakeModel{reply: func(int, context.Context, []*schema.Message) (string, error) {
		return "", errors.New("error, status code: 401, message: invalid api key")
	}}
	svc := newService(t, &plainBackend{model: fm}, HandleOptions{}, Settings{MaxRetries: 2})

	_, err := svc.Translate(context.Background(), "Hi", lang.Korean)
	require.Error(t, err)
	assert.Equal(t, 1, fm.callCount())
}

func TestTimeoutIsNotRetried(t *testing.T) {
	fm := &fakeModel{reply: func(_ int, ctx context.Context, _ []*schema.Message) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	svc := newService(t, &plainBackend{model: fm}, HandleOptions{}, Settings{Timeout: 20 * time.Millisecond, MaxRetries: 2})

	_, err := svc.Translate(context.Background(), "Hi", lang.Korean)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, fm.callCount())
}

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 2 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, backoffDelay(BaseRetryDelay, tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, isRetryableError(nil))
	assert.False(t, isRetryableError(context.Canceled))
	assert.False(t, isRetryableError(errors.New("status code: 400, bad request")))
	assert.True(t, isRetryableError(errors.New("status code: 429, rate limit reached")))
	assert.True(t, isRetryableError(errors.New("status code: 503")))
	assert.True(t, isRetryableError(errors.New("unexpected EOF")))
	assert.False(t, isRetryableError(errors.New("something odd")))
}

func TestTranslateTextRejectsUnsupportedLanguage(t *testing.T) {
	b := &plainBackend{model: &fakeModel{}}
	svc := newService(t, b, HandleOptions{}, Settings{})

	_, err := svc.TranslateText(context.Background(), "Hello", "fr", History{})
	assert.ErrorIs(t, err, lang.ErrUnsupported)
	assert.Equal(t, int32(0), b.loads.Load())
}

func TestTranslateTextEmpty(t *testing.T) {
	b := &plainBackend{model: &fakeModel{}}
	svc := newService(t, b, HandleOptions{}, Settings{})

	out, err := svc.TranslateText(context.Background(), "   ", "ko", History{})
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, int32(0), b.loads.Load())
}

func TestTranslateTextCleansOutput(t *testing.T) {
	fm := &fakeModel{reply: func(int, context.Context, []*schema.Message) (string, error) {
		return "<think>hmm</think>번역: 안녕하세요</s> ignored", nil
	}}
	svc := newService(t, &plainBackend{model: fm}, HandleOptions{}, Settings{})

	out, err := svc.TranslateText(context.Background(), "Hello there", "ko-KR", History{})
	require.NoError(t, err)
	assert.Equal(t, "안녕하세요", out)

	msgs := fm.lastCall()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Target Language: Korean\nInput:\nHello there", msgs[1].Content)
}

func TestTranslateTextCachesOnlyWithoutContext(t *testing.T) {
	fm := &fakeModel{}
	svc := newService(t, &plainBackend{model: fm}, HandleOptions{}, Settings{CacheSize: 8})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.TranslateText(ctx, "Hello", "ko", History{})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, fm.callCount())

	hist := History{Summary: "earlier discussion about greetings"}
	for i := 0; i < 2; i++ {
		_, err := svc.TranslateText(ctx, "Hello", "ko", hist)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, fm.callCount())
}

func TestTranslateTextForwardsRecentTurns(t *testing.T) {
	fm := &fakeModel{}
	svc := newService(t, &plainBackend{model: fm}, HandleOptions{}, Settings{})

	hist := History{Messages: []Message{{Role: "system", Content: "ignore me"}}}
	for i := 0; i < 8; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		hist.Messages = append(hist.Messages, Message{Role: role, Content: "turn " + string(rune('0'+i))})
	}

	_, err := svc.TranslateText(context.Background(), "Next line", "en", hist)
	require.NoError(t, err)

	msgs := fm.lastCall()
	require.Len(t, msgs, 8)
	assert.Equal(t, "turn 2", msgs[1].Content)
	assert.Equal(t, schema.User, msgs[1].Role)
	assert.Equal(t, schema.Assistant, msgs[2].Role)
	assert.Equal(t, "turn 7", msgs[6].Content)
}

func TestTranslateTextTrimsSummary(t *testing.T) {
	fm := &fakeModel{}
	svc := newService(t, &plainBackend{model: fm}, HandleOptions{}, Settings{ContextMaxChars: 10})

	hist := History{Summary: strings.Repeat("a", 50) + "END"}
	_, err := svc.TranslateText(context.Background(), "Hello", "zh", hist)
	require.NoError(t, err)

	msgs := fm.lastCall()
	require.Len(t, msgs, 3)
	assert.Equal(t, "[Previous Context Summary]: aaaaaaaEND", msgs[1].Content)
}

func TestTranslateTextRemovesContextEcho(t *testing.T) {
	summary := "이전 문단의 요약 내용입니다"
	fm := &fakeModel{reply: func(int, context.Context, []*schema.Message) (string, error) {
		return summary + " 안녕하세요", nil
	}}
	svc := newService(t, &plainBackend{model: fm}, HandleOptions{}, Settings{})

	out, err := svc.TranslateText(context.Background(), "Hello there", "ko", History{Summary: summary})
	require.NoError(t, err)
	assert.Equal(t, "안녕하세요", out)
}

func TestTranslateTextAppliesUnloadPolicy(t *testing.T) {
	b := &plainBackend{model: &fakeModel{}}
	svc := newService(t, b, HandleOptions{}, Settings{UnloadAfterJob: true})

	_, err := svc.TranslateText(context.Background(), "Hello", "ko", History{})
	require.NoError(t, err)
	assert.Equal(t, Unloaded, svc.Handle().State())
}

func TestFitBudget(t *testing.T) {
	msgs := []Message{{Content: "aaaa"}, {Content: "bbbb"}, {Content: "cccc"}}
	got := fitBudget(msgs, 6)
	require.Len(t, got, 2)
	assert.Equal(t, "bb", got[0].Content)
	assert.Equal(t, "cccc", got[1].Content)
	assert.Equal(t, "bbbb", msgs[1].Content)

	assert.Len(t, fitBudget(msgs, 100), 3)
	assert.Len(t, fitBudget(msgs, 4), 1)
}

func TestTextTokenBudget(t *testing.T) {
	assert.Equal(t, 256+15, textTokenBudget("Hello"))
	assert.Equal(t, 2048, textTokenBudget(strings.Repeat("x", 1000)))
}

func TestNewServiceFromConfig(t *testing.T) {
	cfg := &config.Config{
		Model:          "AX4-Light",
		BaseURL:        "http://localhost:8000/v1",
		APIKey:         "EMPTY",
		UnloadMode:     "offload",
		UnloadAfterJob: true,
		KeepTokenizer:  true,
		Timeout:        time.Minute,
		MaxNewTokens:   256,
		CacheSize:      16,
	}
	svc, err := NewServiceFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, Unloaded, svc.Handle().State())
	assert.Zero(t, svc.Handle().Loads())
	assert.Equal(t, UnloadOffload, svc.Handle().opts.Mode)
	assert.True(t, svc.Handle().opts.KeepTemplates)
	assert.Equal(t, 0, svc.settings.MaxRetries, "zero retries is kept, not defaulted")

	cfg.UnloadMode = "swap"
	_, err = NewServiceFromConfig(cfg)
	assert.Error(t, err)
}
