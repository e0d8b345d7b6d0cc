package chat_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/platter/internal/chat"
)

func TestRefundDialogReplies(t *testing.T) {
	d := chat.Open(chat.CustomerService, 7, chat.WithDelay(10*time.Millisecond))
	defer d.Close()

	got := make(chan chat.Message, 1)
	d.OnReply(func(m chat.Message) { got <- m })

	sent, err := d.Send("  I want my money back ")
	require.NoError(t, err)
	assert.Equal(t, "I want my money back", sent.Text)
	assert.Equal(t, chat.SenderUser, sent.Sender)

	select {
	case m := <-got:
		assert.Equal(t, chat.SenderStaff, m.Sender)
		assert.Contains(t, m.Text, "refund request")
		assert.NotEqual(t, sent.ID, m.ID)
	case <-time.After(time.Second):
		t.Fatal("no reply")
	}
	assert.Len(t, d.Messages(), 2)
}

func TestDeliveryDialog(t *testing.T) {
	d := chat.Open(chat.DeliveryStaff, 7, chat.WithDelay(time.Millisecond))
	defer d.Close()
	assert.Equal(t, "Contact Delivery Staff", d.Title())

	_, err := d.Send("where are you?")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(d.Messages()) == 2 }, time.Second, time.Millisecond)
	assert.Contains(t, d.Messages()[1].Text, "delivery staff for your order")
}

func TestEmptyMessageRejected(t *testing.T) {
	d := chat.Open(chat.CustomerService, 1)
	_, err := d.Send("   ")
	assert.ErrorIs(t, err, chat.ErrEmptyMessage)
	assert.Empty(t, d.Messages())
}

func TestCloseDropsPendingReply(t *testing.T) {
	d := chat.Open(chat.CustomerService, 1, chat.WithDelay(20*time.Millisecond))
	_, err := d.Send("hello")
	require.NoError(t, err)
	d.Close()

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, d.Messages(), 1)
	_, err = d.Send("again")
	assert.Error(t, err)
}
