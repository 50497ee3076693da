package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/reviselabs/revise/internal/ai"
)

// fakeProvider scripts both provider calls. Generate with an empty system
// prompt is the classification path; everything else is a greeting.
type fakeProvider struct {
	classifyRaw string
	classifyErr error

	reply   string
	chatErr error

	lastSystem string
	lastTurns  []ai.Turn
	chatCalls  int
}

func (p *fakeProvider) Generate(ctx context.Context, system, prompt string) (string, error) {
	_ = ctx
	if system == "" {
		if p.classifyErr != nil {
			return "", p.classifyErr
		}
		return p.classifyRaw, nil
	}
	return "Hey you! I've been waiting to talk to you all day.", nil
}

func (p *fakeProvider) Chat(ctx context.Context, system string, turns []ai.Turn) (string, error) {
	_ = ctx
	p.chatCalls++
	p.lastSystem = system
	p.lastTurns = append([]ai.Turn(nil), turns...)
	if p.chatErr != nil {
		return "", p.chatErr
	}
	if p.reply == "" {
		return "ok", nil
	}
	return p.reply, nil
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Session{}, &Memory{}, &Message{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, prov *fakeProvider) (*Service, *gorm.DB) {
	t.Helper()
	db := openTestDB(t)
	svc := NewService(NewRepo(db), prov, 12, 30*time.Second)
	return svc, db
}

func TestStartSession_CreatesGreetingAndMemory(t *testing.T) {
	prov := &fakeProvider{classifyRaw: `{"sentiment":"neutral","topics":[]}`}
	svc, db := newTestService(t, prov)

	sess, err := svc.StartSession(context.Background(), 101, "Arjun", PersonaGirlfriend, "Chloe", "dating")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if sess.PersonaName != "Chloe" || sess.PersonaType != PersonaGirlfriend {
		t.Fatalf("unexpected session: %+v", sess)
	}

	var msgs []Message
	if err := db.Where("session_id = ?", sess.ID).Order("id ASC").Find(&msgs).Error; err != nil {
		t.Fatalf("query messages: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 greeting message, got %d", len(msgs))
	}
	if msgs[0].Role != RoleModel {
		t.Fatalf("greeting role = %q, want model", msgs[0].Role)
	}

	var mem Memory
	if err := db.Where("session_id = ?", sess.ID).First(&mem).Error; err != nil {
		t.Fatalf("memory row missing: %v", err)
	}
}

func TestStartSession_IdempotentResume(t *testing.T) {
	prov := &fakeProvider{}
	svc, db := newTestService(t, prov)

	first, err := svc.StartSession(context.Background(), 102, "Arjun", PersonaGirlfriend, "Chloe", "dating")
	if err != nil {
		t.Fatalf("first start: %v", err)
	}
	second, err := svc.StartSession(context.Background(), 102, "Arjun", PersonaGirlfriend, "Chloe", "dating")
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same session id, got %q and %q", first.ID, second.ID)
	}

	var count int64
	if err := db.Model(&Message{}).Where("session_id = ?", first.ID).Count(&count).Error; err != nil {
		t.Fatalf("count messages: %v", err)
	}
	if count != 1 {
		t.Fatalf("greeting duplicated: %d messages", count)
	}
}

func TestStartSession_SeparateSessionPerPersonaType(t *testing.T) {
	prov := &fakeProvider{}
	svc, _ := newTestService(t, prov)

	gf, err := svc.StartSession(context.Background(), 103, "Arjun", PersonaGirlfriend, "Chloe", "dating")
	if err != nil {
		t.Fatalf("girlfriend session: %v", err)
	}
	bf, err := svc.StartSession(context.Background(), 103, "Arjun", PersonaBoyfriend, "Dev", "dating")
	if err != nil {
		t.Fatalf("boyfriend session: %v", err)
	}
	if gf.ID == bf.ID {
		t.Fatalf("persona types must not share a session")
	}
}

func TestStartSession_RejectsUnknownPersona(t *testing.T) {
	prov := &fakeProvider{}
	svc, _ := newTestService(t, prov)

	_, err := svc.StartSession(context.Background(), 104, "Arjun", "husband", "Sam", "married")
	if !errors.Is(err, ErrInvalidPersona) {
		t.Fatalf("err = %v, want ErrInvalidPersona", err)
	}
}

func TestPostMessage_AppendsUserThenModel(t *testing.T) {
	prov := &fakeProvider{
		classifyRaw: "```json\n{\"sentiment\":\"loving\",\"topics\":[\"love\",\"future plans\"]}\n```",
		reply:       "I love you too, babe!",
	}
	svc, db := newTestService(t, prov)

	sess, err := svc.StartSession(context.Background(), 105, "Arjun", PersonaGirlfriend, "Chloe", "dating")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	reply, err := svc.PostMessage(context.Background(), 105, "Arjun", sess.ID, "I love you")
	if err != nil {
		t.Fatalf("post message: %v", err)
	}
	if reply != "I love you too, babe!" {
		t.Fatalf("unexpected reply: %q", reply)
	}

	var msgs []Message
	if err := db.Where("session_id = ?", sess.ID).Order("id ASC").Find(&msgs).Error; err != nil {
		t.Fatalf("query messages: %v", err)
	}
	// greeting + user + model
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	userMsg, modelMsg := msgs[1], msgs[2]
	if userMsg.Role != RoleUser || userMsg.Content != "I love you" {
		t.Fatalf("unexpected user msg: %+v", userMsg)
	}
	if userMsg.Sentiment == nil || *userMsg.Sentiment != "loving" {
		t.Fatalf("classification not persisted: %+v", userMsg.Sentiment)
	}
	if len(userMsg.Topics) != 2 {
		t.Fatalf("topics not persisted: %v", userMsg.Topics)
	}
	if modelMsg.Role != RoleModel || modelMsg.Content != reply {
		t.Fatalf("unexpected model msg: %+v", modelMsg)
	}
	if modelMsg.CreatedAt.Before(userMsg.CreatedAt) {
		t.Fatalf("model message timestamp precedes user message")
	}

	var mem Memory
	if err := db.Where("session_id = ?", sess.ID).First(&mem).Error; err != nil {
		t.Fatalf("load memory: %v", err)
	}
	if mem.EmotionalState != "loving" {
		t.Fatalf("memory emotional state = %q", mem.EmotionalState)
	}
	if len(mem.RecentTopics) != 2 {
		t.Fatalf("memory topics = %v", mem.RecentTopics)
	}
}

func TestPostMessage_ClassificationFallback(t *testing.T) {
	prov := &fakeProvider{
		classifyRaw: "```json\nnot json at all\n```",
		reply:       "Tell me more?",
	}
	svc, db := newTestService(t, prov)

	sess, err := svc.StartSession(context.Background(), 106, "Arjun", PersonaGirlfriend, "Chloe", "dating")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	reply, err := svc.PostMessage(context.Background(), 106, "Arjun", sess.ID, "hello?")
	if err != nil {
		t.Fatalf("classification failure must not block delivery: %v", err)
	}
	if reply == "" {
		t.Fatalf("expected a reply despite degraded classification")
	}

	var userMsg Message
	if err := db.Where("session_id = ? AND role = ?", sess.ID, RoleUser).First(&userMsg).Error; err != nil {
		t.Fatalf("load user message: %v", err)
	}
	if userMsg.Sentiment == nil || *userMsg.Sentiment != "neutral" {
		t.Fatalf("fallback sentiment = %v, want neutral", userMsg.Sentiment)
	}
	if len(userMsg.Topics) != 0 {
		t.Fatalf("fallback topics = %v, want empty", userMsg.Topics)
	}
}

func TestPostMessage_WindowIsWellFormed(t *testing.T) {
	prov := &fakeProvider{
		classifyRaw: `{"sentiment":"neutral","topics":[]}`,
	}
	svc, _ := newTestService(t, prov)

	sess, err := svc.StartSession(context.Background(), 107, "Arjun", PersonaGirlfriend, "Chloe", "dating")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	// several turns so the window spans greeting + conversation
	for i := 0; i < 4; i++ {
		if _, err := svc.PostMessage(context.Background(), 107, "Arjun", sess.ID, fmt.Sprintf("message %d", i)); err != nil {
			t.Fatalf("post %d: %v", i, err)
		}
	}

	turns := prov.lastTurns
	if len(turns) == 0 {
		t.Fatalf("provider received no turns")
	}
	if turns[0].Role != ai.RoleUser {
		t.Fatalf("first turn role = %q, want user", turns[0].Role)
	}
	for i := 1; i < len(turns); i++ {
		if turns[i].Role == turns[i-1].Role {
			t.Fatalf("consecutive turns %d and %d share role %q", i-1, i, turns[i].Role)
		}
	}
	if turns[len(turns)-1].Content != "message 3" {
		t.Fatalf("newest user input missing from window: %+v", turns[len(turns)-1])
	}
}

func TestPostMessage_LeadingModelTurnGetsSyntheticUser(t *testing.T) {
	prov := &fakeProvider{
		classifyRaw: `{"sentiment":"neutral","topics":[]}`,
	}
	svc, _ := newTestService(t, prov)

	// session history starts with the model greeting
	sess, err := svc.StartSession(context.Background(), 108, "Arjun", PersonaGirlfriend, "Chloe", "dating")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	if _, err := svc.PostMessage(context.Background(), 108, "Arjun", sess.ID, "first real message"); err != nil {
		t.Fatalf("post: %v", err)
	}

	turns := prov.lastTurns
	if len(turns) != 3 {
		t.Fatalf("expected synthetic user + greeting + user, got %d turns", len(turns))
	}
	if turns[0].Role != ai.RoleUser || turns[0].Content != syntheticGreeting {
		t.Fatalf("expected synthetic leading user turn, got %+v", turns[0])
	}
	if turns[1].Role != ai.RoleModel {
		t.Fatalf("expected greeting second, got %+v", turns[1])
	}
}

func TestPostMessage_ForbiddenForOtherUser(t *testing.T) {
	prov := &fakeProvider{classifyRaw: `{"sentiment":"neutral","topics":[]}`}
	svc, db := newTestService(t, prov)

	sess, err := svc.StartSession(context.Background(), 109, "Arjun", PersonaGirlfriend, "Chloe", "dating")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	var before int64
	if err := db.Model(&Message{}).Where("session_id = ?", sess.ID).Count(&before).Error; err != nil {
		t.Fatalf("count: %v", err)
	}

	_, err = svc.PostMessage(context.Background(), 999, "Mallory", sess.ID, "hi")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}

	var after int64
	if err := db.Model(&Message{}).Where("session_id = ?", sess.ID).Count(&after).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if before != after {
		t.Fatalf("forbidden call mutated history: %d -> %d", before, after)
	}
}

func TestPostMessage_GenerationFailureLeavesOrphanUserMessage(t *testing.T) {
	prov := &fakeProvider{
		classifyRaw: `{"sentiment":"neutral","topics":[]}`,
		chatErr:     errors.New("provider down"),
	}
	svc, db := newTestService(t, prov)

	sess, err := svc.StartSession(context.Background(), 110, "Arjun", PersonaGirlfriend, "Chloe", "dating")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	_, err = svc.PostMessage(context.Background(), 110, "Arjun", sess.ID, "anyone there?")
	if err == nil {
		t.Fatalf("expected generation failure")
	}

	var msgs []Message
	if err := db.Where("session_id = ?", sess.ID).Order("id ASC").Find(&msgs).Error; err != nil {
		t.Fatalf("query: %v", err)
	}
	// greeting + orphan user message, no model reply
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[1].Role != RoleUser {
		t.Fatalf("orphan message role = %q", msgs[1].Role)
	}
}

func TestMemoryTopicsCappedAndDeduplicated(t *testing.T) {
	prov := &fakeProvider{}
	svc, db := newTestService(t, prov)

	sess, err := svc.StartSession(context.Background(), 111, "Arjun", PersonaGirlfriend, "Chloe", "dating")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	for i := 0; i < 8; i++ {
		prov.classifyRaw = fmt.Sprintf(`{"sentiment":"happy","topics":["topic-%d","topic-%d","movies"]}`, i, i+1)
		if _, err := svc.PostMessage(context.Background(), 111, "Arjun", sess.ID, "chat"); err != nil {
			t.Fatalf("post %d: %v", i, err)
		}
	}

	var mem Memory
	if err := db.Where("session_id = ?", sess.ID).First(&mem).Error; err != nil {
		t.Fatalf("load memory: %v", err)
	}
	if len(mem.RecentTopics) > topicCap {
		t.Fatalf("topics exceed cap: %d > %d", len(mem.RecentTopics), topicCap)
	}
	seen := map[string]bool{}
	for _, topic := range mem.RecentTopics {
		if seen[topic] {
			t.Fatalf("duplicate topic %q", topic)
		}
		seen[topic] = true
	}
	// newest classification wins the front of the list
	if mem.RecentTopics[0] != "topic-7" {
		t.Fatalf("expected newest topic first, got %q", mem.RecentTopics[0])
	}
}

func TestGetContext_SummaryAndChronologicalOrder(t *testing.T) {
	prov := &fakeProvider{
		classifyRaw: `{"sentiment":"happy","topics":["movies","travel"]}`,
	}
	svc, _ := newTestService(t, prov)

	sess, err := svc.StartSession(context.Background(), 112, "Arjun", PersonaGirlfriend, "Chloe", "dating")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if _, err := svc.PostMessage(context.Background(), 112, "Arjun", sess.ID, "let's watch a movie"); err != nil {
		t.Fatalf("post: %v", err)
	}

	summary, msgs, err := svc.GetContext(context.Background(), 112, sess.ID)
	if err != nil {
		t.Fatalf("get context: %v", err)
	}
	if len(msgs) == 0 || len(msgs) > contextRecentLimit {
		t.Fatalf("unexpected message count: %d", len(msgs))
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].ID < msgs[i-1].ID {
			t.Fatalf("messages not chronological at %d", i)
		}
	}
	want := "Last time we chatted, we talked about movies, travel. It's so good to talk to you again!"
	if summary != want {
		t.Fatalf("summary = %q, want %q", summary, want)
	}
}

func TestGetContext_EmptyTopicsUsesWelcomeBack(t *testing.T) {
	prov := &fakeProvider{}
	svc, _ := newTestService(t, prov)

	sess, err := svc.StartSession(context.Background(), 113, "Arjun", PersonaGirlfriend, "Chloe", "dating")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	summary, _, err := svc.GetContext(context.Background(), 113, sess.ID)
	if err != nil {
		t.Fatalf("get context: %v", err)
	}
	if summary != "Welcome back! Let's continue our conversation." {
		t.Fatalf("summary = %q", summary)
	}

	_, _, err = svc.GetContext(context.Background(), 998, sess.ID)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign user err = %v, want ErrForbidden", err)
	}
}
