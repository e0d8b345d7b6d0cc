// Package chat is the customer's conversation window about an order. There
// is no chat backend: every message gets a canned reply from the other side
// after a short delay.
package chat

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind selects who answers.
type Kind string

const (
	CustomerService Kind = "customer_service"
	DeliveryStaff   Kind = "delivery_staff"
)

const (
	SenderUser  = "user"
	SenderStaff = "staff"
)

// ReplyDelay is how long the other side takes to answer.
const ReplyDelay = time.Second

var ErrEmptyMessage = errors.New("chat: message is empty")

var replies = map[Kind]string{
	CustomerService: "Thank you for contacting us. We will review your refund request and get back to you within 3-5 business days. Is there anything else we can help you with?",
	DeliveryStaff:   "Hello! I'm the delivery staff for your order. How can I assist you today?",
}

type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// Dialog holds one conversation about one order.
type Dialog struct {
	Kind    Kind
	OrderID int

	delay time.Duration
	now   func() time.Time

	mu       sync.Mutex
	messages []Message
	timers   []*time.Timer
	closed   bool
	onReply  []func(Message)
}

type Option func(*Dialog)

// WithDelay overrides ReplyDelay.
func WithDelay(d time.Duration) Option { return func(dl *Dialog) { dl.delay = d } }

func WithClock(now func() time.Time) Option { return func(dl *Dialog) { dl.now = now } }

// Open starts an empty dialog.
func Open(kind Kind, orderID int, opts ...Option) *Dialog {
	d := &Dialog{Kind: kind, OrderID: orderID, delay: ReplyDelay, now: time.Now}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Title is the dialog heading.
func (d *Dialog) Title() string {
	if d.Kind == DeliveryStaff {
		return "Contact Delivery Staff"
	}
	return "Customer Service"
}

// OnReply registers fn to receive each staff reply.
func (d *Dialog) OnReply(fn func(Message)) {
	d.mu.Lock()
	d.onReply = append(d.onReply, fn)
	d.mu.Unlock()
}

// Send appends the user's message and schedules the canned reply.
func (d *Dialog) Send(text string) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}
	msg := Message{ID: uuid.NewString(), Text: text, Sender: SenderUser, Timestamp: d.now()}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return Message{}, errors.New("chat: dialog is closed")
	}
	d.messages = append(d.messages, msg)
	d.timers = append(d.timers, time.AfterFunc(d.delay, d.reply))
	return msg, nil
}

func (d *Dialog) reply() {
	msg := Message{ID: uuid.NewString(), Text: replies[d.Kind], Sender: SenderStaff, Timestamp: d.now()}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.messages = append(d.messages, msg)
	subs := append([]func(Message){}, d.onReply...)
	d.mu.Unlock()

	for _, fn := range subs {
		fn(msg)
	}
}

// Messages returns a copy of the conversation so far.
func (d *Dialog) Messages() []Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Message(nil), d.messages...)
}

// Close drops pending replies. The transcript stays readable.
func (d *Dialog) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	for _, t := range d.timers {
		t.Stop()
	}
	d.timers = nil
}
