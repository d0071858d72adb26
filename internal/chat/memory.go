package chat

import (
	"context"
	"strconv"
	"sync"

	"serenote/internal/panel"
)

// Memory is an in-process Messenger. It backs the console mode and tests.
type Memory struct {
	SelfID string

	mu        sync.Mutex
	nextID    int64
	messages  map[string]Message
	order     []string
	reactions map[string][]string
	deleted   []string
	sendErr   error
}

func NewMemory(selfID string) *Memory {
	return &Memory{
		SelfID:    selfID,
		nextID:    1000,
		messages:  make(map[string]Message),
		reactions: make(map[string][]string),
	}
}

// Post records an inbound message (for example a user's command) and returns it with an id.
func (m *Memory) Post(msg Message) Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg.ID == "" {
		msg.ID = m.newIDLocked()
	}
	m.storeLocked(msg)
	return msg
}

// FailSends makes subsequent sends return err until called with nil.
func (m *Memory) FailSends(err error) {
	m.mu.Lock()
	m.sendErr = err
	m.mu.Unlock()
}

func (m *Memory) SendText(ctx context.Context, channelID, content string) (Message, error) {
	return m.send(Message{ChannelID: channelID, Content: content})
}

func (m *Memory) SendPanel(ctx context.Context, channelID string, p panel.Panel) (Message, error) {
	return m.send(Message{ChannelID: channelID, Panel: &p})
}

func (m *Memory) send(msg Message) (Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return Message{}, m.sendErr
	}
	msg.ID = m.newIDLocked()
	msg.AuthorID = m.SelfID
	m.storeLocked(msg)
	return msg, nil
}

func (m *Memory) EditPanel(ctx context.Context, channelID, messageID string, p panel.Panel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[messageID]
	if !ok {
		return ErrNotFound
	}
	msg.Panel = &p
	m.messages[messageID] = msg
	return nil
}

func (m *Memory) FetchMessage(ctx context.Context, channelID, messageID string) (Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[messageID]
	if !ok {
		return Message{}, ErrNotFound
	}
	return msg, nil
}

func (m *Memory) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.messages[messageID]; !ok {
		return ErrNotFound
	}
	delete(m.messages, messageID)
	delete(m.reactions, messageID)
	m.deleted = append(m.deleted, messageID)
	return nil
}

func (m *Memory) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.messages[messageID]; !ok {
		return ErrNotFound
	}
	m.reactions[messageID] = append(m.reactions[messageID], emoji)
	return nil
}

// Get returns a live message.
func (m *Memory) Get(messageID string) (Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[messageID]
	return msg, ok
}

// Messages returns live messages in posting order.
func (m *Memory) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, 0, len(m.order))
	for _, id := range m.order {
		if msg, ok := m.messages[id]; ok {
			out = append(out, msg)
		}
	}
	return out
}

// Last returns the most recent live message.
func (m *Memory) Last() (Message, bool) {
	msgs := m.Messages()
	if len(msgs) == 0 {
		return Message{}, false
	}
	return msgs[len(msgs)-1], true
}

func (m *Memory) Reactions(messageID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.reactions[messageID]...)
}

func (m *Memory) Deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}

func (m *Memory) newIDLocked() string {
	m.nextID++
	return strconv.FormatInt(m.nextID, 10)
}

func (m *Memory) storeLocked(msg Message) {
	if _, exists := m.messages[msg.ID]; !exists {
		m.order = append(m.order, msg.ID)
	}
	m.messages[msg.ID] = msg
}
