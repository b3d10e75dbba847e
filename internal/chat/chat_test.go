package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DeFi-Agent/internal/agents"
	"DeFi-Agent/internal/auth"
	apperrors "DeFi-Agent/internal/errors"
	"DeFi-Agent/internal/knowledge"
	"DeFi-Agent/internal/llm"
	"DeFi-Agent/internal/llm/echo"
	"DeFi-Agent/internal/store"
	"DeFi-Agent/internal/task"
	"DeFi-Agent/pkg/dto"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

// Now advances one millisecond per call so records get distinct timestamps.
func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recorder struct {
	mu      sync.Mutex
	frames  []Frame
	failAt  int
	attempt int
}

func (r *recorder) Send(data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempt++
	if r.failAt > 0 && r.attempt >= r.failAt {
		return errors.New("client gone")
	}
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	r.frames = append(r.frames, f)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.frames))
	for _, f := range r.frames {
		out = append(out, f.Type)
	}
	return out
}

type submitted struct {
	kind    task.Kind
	payload map[string]any
}

type fakeJobs struct {
	jobs []submitted
}

func (f *fakeJobs) Submit(_ context.Context, kind task.Kind, payload map[string]any) (*task.Task, error) {
	f.jobs = append(f.jobs, submitted{kind: kind, payload: payload})
	return &task.Task{ID: fmt.Sprint(len(f.jobs)), Kind: kind}, nil
}

type capturingLLM struct {
	llm.Client
	last llm.Request
	err  error
}

func (c *capturingLLM) Stream(ctx context.Context, req llm.Request, fn func(llm.Delta) error) (*llm.Response, error) {
	c.last = req
	if c.err != nil {
		return nil, c.err
	}
	return c.Client.Stream(ctx, req, fn)
}

type stubAgent struct{}

func (stubAgent) ID() string                { return "staking" }
func (stubAgent) Name() string              { return "Staking Agent" }
func (stubAgent) Description() []string     { return nil }
func (stubAgent) Type() agents.Type         { return agents.TypeStrategy }
func (stubAgent) Icon() string              { return "" }
func (stubAgent) SupportedChains() []string { return nil }
func (stubAgent) SystemPrompt() string      { return "You are a staking assistant." }
func (stubAgent) Context(_ context.Context, wallet string) (string, error) {
	return "On-chain context:\n- wallet " + wallet, nil
}

type fixture struct {
	svc   *Service
	repo  *store.Memory
	llm   *capturingLLM
	jobs  *fakeJobs
	clock *testClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := store.NewMemory()
	client := &capturingLLM{Client: echo.New()}
	jobs := &fakeJobs{}
	registry := agents.NewRegistry()
	registry.Register(stubAgent{})
	clock := newTestClock()
	svc := NewService(repo, client, WithJobs(jobs), WithAgents(registry))
	svc.now = clock.Now
	return &fixture{svc: svc, repo: repo, llm: client, jobs: jobs, clock: clock}
}

var (
	alice = &auth.Subject{ID: "alice", Type: auth.UserTypeRegular, WalletAddress: "0xabc"}
	bob   = &auth.Subject{ID: "bob", Type: auth.UserTypeGuest}
)

func userMessage(id, text string) *dto.UIMessage {
	return &dto.UIMessage{ID: id, Role: "user", Parts: []dto.Part{{Type: "text", Text: text}}}
}

func postChat(id, messageID, text string) dto.PostChatRequest {
	return dto.PostChatRequest{ID: id, Message: userMessage(messageID, text), SelectedChatModel: llm.ChatModelID}
}

func TestCreateStreamsAndPersists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	out := &recorder{}

	require.NoError(t, f.svc.Create(ctx, alice, postChat("c1", "m1", "hello defi world"), RequestHints{}, out))

	assert.Equal(t, []string{
		FrameDataID, FrameStart, FrameStartStep, FrameTextStart,
		FrameTextDelta, FrameTextDelta, FrameTextDelta,
		FrameTextEnd, FrameFinishStep, FrameFinish,
	}, out.types())

	chat, err := f.repo.GetChatByID(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, chat)
	assert.Equal(t, "New chat", chat.Title)
	assert.Equal(t, store.VisibilityPrivate, chat.Visibility)
	assert.Nil(t, chat.AgentID)

	got, err := f.svc.GetChat(ctx, alice, "c1")
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "assistant", got.Messages[1].Role)
	assert.Equal(t, "hello defi world", got.Messages[1].Text())
	assert.Equal(t, out.frames[1].MessageID, got.Messages[1].ID)

	require.Len(t, f.jobs.jobs, 1)
	assert.Equal(t, TitleJobKind, f.jobs.jobs[0].kind)
	assert.Equal(t, "c1", f.jobs.jobs[0].payload["chat_id"])

	assert.Equal(t, llm.DefaultModel, f.llm.last.Model)
	assert.Contains(t, f.llm.last.System, "friendly assistant")
	assert.Contains(t, f.llm.last.System, "country: null")
}

func TestCreateContinuesExistingChat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Create(ctx, alice, postChat("c1", "m1", "first"), RequestHints{}, &recorder{}))
	require.NoError(t, f.svc.Create(ctx, alice, postChat("c1", "m2", "second"), RequestHints{Country: "VN"}, &recorder{}))

	assert.Len(t, f.jobs.jobs, 1)
	require.Len(t, f.llm.last.Messages, 3)
	assert.Equal(t, "first", f.llm.last.Messages[0].Content)
	assert.Equal(t, llm.RoleAssistant, f.llm.last.Messages[1].Role)
	assert.Equal(t, "second", f.llm.last.Messages[2].Content)
	assert.Contains(t, f.llm.last.System, "country: VN")
}

func TestCreateRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("forbidden", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.svc.Create(ctx, alice, postChat("c1", "m1", "hi"), RequestHints{}, &recorder{}))
		err := f.svc.Create(ctx, bob, postChat("c1", "m2", "hi"), RequestHints{}, &recorder{})
		assert.Equal(t, apperrors.CodeForbiddenChat, apperrors.CodeOf(err))
	})

	t.Run("unknown agent", func(t *testing.T) {
		f := newFixture(t)
		req := postChat("c1", "m1", "hi")
		req.AgentID = "missing"
		err := f.svc.Create(ctx, alice, req, RequestHints{}, &recorder{})
		assert.Equal(t, apperrors.CodeNotFoundAgent, apperrors.CodeOf(err))
		chat, _ := f.repo.GetChatByID(ctx, "c1")
		assert.Nil(t, chat)
	})

	t.Run("no message", func(t *testing.T) {
		f := newFixture(t)
		err := f.svc.Create(ctx, alice, dto.PostChatRequest{ID: "c1", SelectedChatModel: "chat-model"}, RequestHints{}, &recorder{})
		assert.Equal(t, apperrors.CodeBadRequestChat, apperrors.CodeOf(err))
	})

	t.Run("entitlement exceeded", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.repo.SaveChat(ctx, &store.Chat{ID: "c1", UserID: bob.ID, Visibility: "private"}))
		limit := auth.EntitlementsFor(bob.Type).MaxMessagesPerDay
		for i := 0; i <= limit; i++ {
			require.NoError(t, f.repo.SaveMessages(ctx, []store.Message{{
				ID: fmt.Sprintf("m%d", i), ChatID: "c1", Role: "user", CreatedAt: time.Now(),
			}}))
		}
		err := f.svc.Create(ctx, bob, postChat("c1", "next", "hi"), RequestHints{}, &recorder{})
		assert.Equal(t, apperrors.CodeRateLimitChat, apperrors.CodeOf(err))
	})

	t.Run("llm offline", func(t *testing.T) {
		f := newFixture(t)
		f.llm.err = errors.New("connection refused")
		out := &recorder{}
		err := f.svc.Create(ctx, alice, postChat("c1", "m1", "hi"), RequestHints{}, out)
		assert.Equal(t, apperrors.CodeOfflineChat, apperrors.CodeOf(err))
		assert.Empty(t, out.frames)
	})
}

func TestCreateWithAgentContext(t *testing.T) {
	f := newFixture(t)
	req := postChat("c1", "m1", "stake please")
	req.AgentID = "staking"
	require.NoError(t, f.svc.Create(context.Background(), alice, req, RequestHints{}, &recorder{}))

	assert.Contains(t, f.llm.last.System, "You are a staking assistant.")
	assert.Contains(t, f.llm.last.System, "wallet 0xabc")
	assert.NotContains(t, f.llm.last.System, "friendly assistant")

	chat, err := f.repo.GetChatByID(context.Background(), "c1")
	require.NoError(t, err)
	require.NotNil(t, chat.AgentID)
	assert.Equal(t, "staking", *chat.AgentID)
}

func TestCreateAppendsKnowledgeNotes(t *testing.T) {
	f := newFixture(t)
	WithKnowledge(knowledge.NewStaticProvider([]knowledge.Snippet{
		{Title: "Unbonding", Content: "Unstaking takes 21 days.", Keywords: []string{"unstake"}, Agents: []string{"staking"}},
		{Title: "Swaps", Content: "Slippage applies.", Keywords: []string{"swap"}},
	}, 3))(f.svc)

	req := postChat("c1", "m1", "how long to unstake?")
	req.AgentID = "staking"
	require.NoError(t, f.svc.Create(context.Background(), alice, req, RequestHints{}, &recorder{}))
	assert.Contains(t, f.llm.last.System, "wallet 0xabc")
	assert.Contains(t, f.llm.last.System, "- Unbonding: Unstaking takes 21 days.")
	assert.NotContains(t, f.llm.last.System, "Swaps")

	require.NoError(t, f.svc.Create(context.Background(), alice, postChat("c2", "m2", "hello"), RequestHints{}, &recorder{}))
	assert.NotContains(t, f.llm.last.System, "Reference notes")
	assert.Contains(t, f.llm.last.System, "friendly assistant")
}

func TestCreateKeepsGeneratingAfterDisconnect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	out := &recorder{failAt: 3}

	require.NoError(t, f.svc.Create(ctx, alice, postChat("c1", "m1", "one two three four"), RequestHints{}, out))
	assert.Len(t, out.frames, 2)

	streams, err := f.repo.GetStreamIDsByChatID(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, streams, 1)
	replay, err := f.svc.Buffer().Replay(ctx, streams[0])
	require.NoError(t, err)
	require.NotNil(t, replay)
	assert.True(t, replay.Done)
	assert.Len(t, replay.Frames, 11)

	// 流已经结束，恢复时只追加最新的助手消息，不重放整段输出。
	resumed := &recorder{}
	require.NoError(t, f.svc.Resume(ctx, alice, "c1", resumed))
	assert.Equal(t, []string{FrameAppendMessage}, resumed.types())
}

func TestResumeFollowsRunningStream(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.repo.SaveChat(ctx, &store.Chat{ID: "c1", UserID: alice.ID, Visibility: "private"}))
	require.NoError(t, f.repo.CreateStreamID(ctx, "s1", "c1"))

	for _, frame := range []Frame{{Type: FrameStart, MessageID: "a1"}, {Type: FrameTextDelta, ID: "t1", Delta: "hi"}} {
		data, err := EncodeFrame(frame)
		require.NoError(t, err)
		require.NoError(t, f.svc.buffer.Append(ctx, "s1", data))
	}
	go func() {
		time.Sleep(50 * time.Millisecond)
		data, _ := EncodeFrame(Frame{Type: FrameFinish})
		_ = f.svc.buffer.Append(ctx, "s1", data)
		_ = f.svc.buffer.Complete(ctx, "s1")
	}()

	out := &recorder{}
	require.NoError(t, f.svc.Resume(ctx, alice, "c1", out))
	assert.Equal(t, []string{FrameStart, FrameTextDelta, FrameFinish}, out.types())
}

func TestResumeFallbacks(t *testing.T) {
	ctx := context.Background()

	t.Run("no streams", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.repo.SaveChat(ctx, &store.Chat{ID: "c1", UserID: alice.ID, Visibility: "private"}))
		err := f.svc.Resume(ctx, alice, "c1", &recorder{})
		assert.Equal(t, apperrors.CodeNotFoundStream, apperrors.CodeOf(err))
	})

	t.Run("missing and forbidden", func(t *testing.T) {
		f := newFixture(t)
		err := f.svc.Resume(ctx, alice, "nope", &recorder{})
		assert.Equal(t, apperrors.CodeNotFoundChat, apperrors.CodeOf(err))

		require.NoError(t, f.repo.SaveChat(ctx, &store.Chat{ID: "c1", UserID: alice.ID, Visibility: "private"}))
		err = f.svc.Resume(ctx, bob, "c1", &recorder{})
		assert.Equal(t, apperrors.CodeForbiddenChat, apperrors.CodeOf(err))
	})

	t.Run("append recent message", func(t *testing.T) {
		f := newFixture(t)
		f.svc.buffer = NewMemoryBuffer(time.Nanosecond)
		require.NoError(t, f.svc.Create(ctx, alice, postChat("c1", "m1", "hello"), RequestHints{}, &recorder{}))
		time.Sleep(time.Millisecond)

		out := &recorder{}
		require.NoError(t, f.svc.Resume(ctx, alice, "c1", out))
		require.Len(t, out.frames, 1)
		assert.Equal(t, FrameAppendMessage, out.frames[0].Type)
		assert.True(t, out.frames[0].Transient)
		payload, ok := out.frames[0].Data.(string)
		require.True(t, ok)
		var msg dto.UIMessage
		require.NoError(t, json.Unmarshal([]byte(payload), &msg))
		assert.Equal(t, "assistant", msg.Role)
		assert.Equal(t, "hello", msg.Text())

		f.clock.Advance(16 * time.Second)
		late := &recorder{}
		require.NoError(t, f.svc.Resume(ctx, alice, "c1", late))
		assert.Empty(t, late.frames)
	})
}

func TestGetChatVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Create(ctx, alice, postChat("c1", "m1", "hi"), RequestHints{}, &recorder{}))

	_, err := f.svc.GetChat(ctx, bob, "c1")
	assert.Equal(t, apperrors.CodeForbiddenChat, apperrors.CodeOf(err))

	require.NoError(t, f.svc.UpdateVisibility(ctx, alice, "c1", "public"))
	got, err := f.svc.GetChat(ctx, bob, "c1")
	require.NoError(t, err)
	assert.Equal(t, "public", got.Chat.Visibility)

	err = f.svc.UpdateVisibility(ctx, bob, "c1", "private")
	assert.Equal(t, apperrors.CodeForbiddenChat, apperrors.CodeOf(err))

	_, err = f.svc.GetChat(ctx, alice, "missing")
	assert.Equal(t, apperrors.CodeNotFoundChat, apperrors.CodeOf(err))
}

func TestDeleteChatAndTrailingMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Create(ctx, alice, postChat("c1", "m1", "first"), RequestHints{}, &recorder{}))
	require.NoError(t, f.svc.Create(ctx, alice, postChat("c1", "m2", "second"), RequestHints{}, &recorder{}))

	err := f.svc.DeleteTrailingMessages(ctx, bob, "m2")
	assert.Equal(t, apperrors.CodeForbiddenChat, apperrors.CodeOf(err))
	err = f.svc.DeleteTrailingMessages(ctx, alice, "missing")
	assert.Equal(t, apperrors.CodeNotFoundChat, apperrors.CodeOf(err))

	require.NoError(t, f.svc.DeleteTrailingMessages(ctx, alice, "m2"))
	got, err := f.svc.GetChat(ctx, alice, "c1")
	require.NoError(t, err)
	assert.Len(t, got.Messages, 2)

	_, err = f.svc.DeleteChat(ctx, bob, "c1")
	assert.Equal(t, apperrors.CodeForbiddenChat, apperrors.CodeOf(err))
	deleted, err := f.svc.DeleteChat(ctx, alice, "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", deleted.ID)
	_, err = f.svc.DeleteChat(ctx, alice, "c1")
	assert.Equal(t, apperrors.CodeNotFoundChat, apperrors.CodeOf(err))
}

func TestHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, f.svc.Create(ctx, alice, postChat(fmt.Sprintf("c%d", i), fmt.Sprintf("m%d", i), "hi"), RequestHints{}, &recorder{}))
	}

	_, err := f.svc.History(ctx, alice, dto.HistoryQuery{StartingAfter: "c0", EndingBefore: "c2"})
	assert.Equal(t, apperrors.CodeBadRequestAPI, apperrors.CodeOf(err))

	page, err := f.svc.History(ctx, alice, dto.HistoryQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Chats, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, "c2", page.Chats[0].ID)

	older, err := f.svc.History(ctx, alice, dto.HistoryQuery{EndingBefore: page.Chats[1].ID})
	require.NoError(t, err)
	require.Len(t, older.Chats, 1)
	assert.False(t, older.HasMore)

	empty, err := f.svc.History(ctx, bob, dto.HistoryQuery{})
	require.NoError(t, err)
	assert.Empty(t, empty.Chats)

	deleted, err := f.svc.DeleteHistory(ctx, alice)
	require.NoError(t, err)
	assert.EqualValues(t, 3, deleted.DeletedCount)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 10, clampLimit(0))
	assert.Equal(t, 1, clampLimit(-5))
	assert.Equal(t, 100, clampLimit(1000))
	assert.Equal(t, 25, clampLimit(25))
}

func TestVotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Create(ctx, alice, postChat("c1", "m1", "hi"), RequestHints{}, &recorder{}))

	for _, id := range []string{"", "undefined", "null", "missing"} {
		votes, err := f.svc.Votes(ctx, alice, id)
		require.NoError(t, err, id)
		assert.Empty(t, votes, id)
	}

	_, err := f.svc.Votes(ctx, bob, "c1")
	assert.Equal(t, apperrors.CodeForbiddenVote, apperrors.CodeOf(err))

	_, err = f.svc.Vote(ctx, alice, dto.VoteRequest{ChatID: "missing", MessageID: "m1", Type: "up"})
	assert.Equal(t, apperrors.CodeNotFoundVote, apperrors.CodeOf(err))
	_, err = f.svc.Vote(ctx, bob, dto.VoteRequest{ChatID: "c1", MessageID: "m1", Type: "up"})
	assert.Equal(t, apperrors.CodeForbiddenVote, apperrors.CodeOf(err))

	res, err := f.svc.Vote(ctx, alice, dto.VoteRequest{ChatID: "c1", MessageID: "m1", Type: "up"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	_, err = f.svc.Vote(ctx, alice, dto.VoteRequest{ChatID: "c1", MessageID: "m1", Type: "down"})
	require.NoError(t, err)

	votes, err := f.svc.Votes(ctx, alice, "c1")
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.False(t, votes[0].IsUpvoted)
}

type titleLLM struct {
	llm.Client
	reply string
	err   error
}

func (c titleLLM) Generate(context.Context, llm.Request) (*llm.Response, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &llm.Response{Text: c.reply}, nil
}

func TestTitleExecutor(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	require.NoError(t, repo.SaveChat(ctx, &store.Chat{ID: "c1", UserID: "u", Title: defaultTitle, Visibility: "private"}))
	job := &task.Task{ID: "t1", Kind: TitleJobKind, Payload: map[string]any{"chat_id": "c1", "text": "what is staking"}}

	err := NewTitleExecutor(titleLLM{err: errors.New("down")}, repo, "").Execute(ctx, job)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeOfflineChat, apperrors.CodeOf(err))
	assert.True(t, apperrors.RetryableError(err))
	chat, _ := repo.GetChatByID(ctx, "c1")
	assert.Equal(t, defaultTitle, chat.Title)

	require.NoError(t, NewTitleExecutor(titleLLM{reply: "\n"}, repo, "").Execute(ctx, job))
	require.NoError(t, NewTitleExecutor(titleLLM{reply: "x"}, repo, "").Execute(ctx, &task.Task{ID: "t0", Kind: TitleJobKind}))

	require.NoError(t, NewTitleExecutor(titleLLM{reply: "\"Staking basics\"\nextra"}, repo, "").Execute(ctx, job))
	chat, _ = repo.GetChatByID(ctx, "c1")
	assert.Equal(t, "Staking basics", chat.Title)
}

func TestTitleJobRetriesThenGivesUp(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	repo := store.NewMemory()
	require.NoError(t, repo.SaveChat(ctx, &store.Chat{ID: "c1", UserID: "u", Title: defaultTitle, Visibility: "private"}))

	tasks := task.NewMemoryStore()
	queue := task.NewMemoryQueue(8)
	jobs := task.NewService(tasks, queue, 3)
	processor := task.NewProcessor(tasks, queue, queue)
	processor.Register(TitleJobKind, NewTitleExecutor(titleLLM{err: errors.New("down")}, repo, ""))
	runCtx, stop := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = processor.Start(runCtx)
	}()
	defer func() {
		stop()
		<-done
	}()

	job, err := jobs.Submit(ctx, TitleJobKind, map[string]any{"chat_id": "c1", "text": "what is staking"})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		got, err := jobs.Get(ctx, job.ID)
		return err == nil && got.Status == task.StatusFailed
	}, 4*time.Second, 10*time.Millisecond)

	got, err := jobs.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Attempts)
	chat, _ := repo.GetChatByID(ctx, "c1")
	assert.Equal(t, defaultTitle, chat.Title)
}

func TestNormalizeTitle(t *testing.T) {
	long := ""
	for i := 0; i < 100; i++ {
		long += "x"
	}
	assert.Len(t, normalizeTitle(long), maxTitleLength)
	assert.Equal(t, "Yield on U2U", normalizeTitle("  'Yield on U2U'  "))
}

func TestMemoryBufferExpiry(t *testing.T) {
	ctx := context.Background()
	buf := NewMemoryBuffer(time.Minute)
	now := time.Unix(1_700_000_000, 0)
	buf.now = func() time.Time { return now }

	require.NoError(t, buf.Append(ctx, "s1", []byte(`{"type":"start"}`)))
	replay, err := buf.Replay(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, replay)
	assert.False(t, replay.Done)

	require.NoError(t, buf.Complete(ctx, "s1"))
	replay, _ = buf.Replay(ctx, "s1")
	assert.True(t, replay.Done)

	now = now.Add(2 * time.Minute)
	replay, _ = buf.Replay(ctx, "s1")
	assert.Nil(t, replay)
	assert.Equal(t, 1, buf.Prune(ctx))
}
