package stats

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

var baseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type fakePlatform struct {
	mu       sync.Mutex
	emojis   []Emoji
	members  []snowflake.ID
	channels map[snowflake.ID][]Message // oldest first
	denied   map[snowflake.ID]bool
	errs     map[snowflake.ID]error
	block    chan struct{}
	entered  chan struct{}
	seq      int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		channels: make(map[snowflake.ID][]Message),
		denied:   make(map[snowflake.ID]bool),
		errs:     make(map[snowflake.ID]error),
	}
}

func (p *fakePlatform) addChannel(id snowflake.ID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.channels[id]; !ok {
		p.channels[id] = nil
	}
}

func (p *fakePlatform) removeChannel(id snowflake.ID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.channels, id)
}

func (p *fakePlatform) post(channelID, authorID snowflake.ID, bot bool, content string) Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	at := baseTime.Add(time.Duration(p.seq) * time.Second)
	m := Message{
		ID:        snowflake.New(at),
		CreatedAt: at,
		AuthorID:  authorID,
		AuthorBot: bot,
		Content:   content,
	}
	p.channels[channelID] = append(p.channels[channelID], m)
	return m
}

func (p *fakePlatform) deleteMessage(channelID, messageID snowflake.ID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels[channelID] = slices.DeleteFunc(p.channels[channelID], func(m Message) bool {
		return m.ID == messageID
	})
}

func (p *fakePlatform) setMembers(ids ...snowflake.ID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.members = ids
}

func (p *fakePlatform) Emojis(_ context.Context, _ snowflake.ID) ([]Emoji, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.emojis), nil
}

func (p *fakePlatform) Channels(_ context.Context, _ snowflake.ID) ([]snowflake.ID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Sorted(maps.Keys(p.channels)), nil
}

func (p *fakePlatform) Members(_ context.Context, _ snowflake.ID) ([]snowflake.ID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.members), nil
}

func (p *fakePlatform) Messages(ctx context.Context, channelID snowflake.ID, fn func(Message) bool) error {
	if p.entered != nil {
		select {
		case p.entered <- struct{}{}:
		default:
		}
	}
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p.mu.Lock()
	if p.denied[channelID] {
		p.mu.Unlock()
		return ErrChannelInaccessible
	}
	if err := p.errs[channelID]; err != nil {
		p.mu.Unlock()
		return err
	}
	history := slices.Clone(p.channels[channelID])
	p.mu.Unlock()

	for i := len(history) - 1; i >= 0; i-- {
		if !fn(history[i]) {
			return nil
		}
	}
	return nil
}

type memoryStore struct {
	mu       sync.Mutex
	snapshot *Snapshot
	replaced int
	loadErr  error
}

func (s *memoryStore) Load(_ context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.snapshot == nil {
		return NewSnapshot(), nil
	}
	return cloneSnapshot(s.snapshot), nil
}

func (s *memoryStore) Replace(_ context.Context, snapshot *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = cloneSnapshot(snapshot)
	s.replaced++
	return nil
}

func cloneSnapshot(s *Snapshot) *Snapshot {
	return &Snapshot{
		EmojiCounts:   maps.Clone(s.EmojiCounts),
		MessageCounts: maps.Clone(s.MessageCounts),
		Progress:      maps.Clone(s.Progress),
	}
}
