package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"beatwise/lib/logger"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMembers struct {
	members map[int64]tgbotapi.ChatMember
	chatId  int64
	opts    *tgbotapi.GetChatMemberOpts
}

func (f *fakeMembers) GetChatMember(chatId int64, userId int64, opts *tgbotapi.GetChatMemberOpts) (tgbotapi.ChatMember, error) {
	f.chatId = chatId
	f.opts = opts
	m, ok := f.members[userId]
	if !ok {
		return nil, errors.New("Bad Request: user not found")
	}
	return m, nil
}

type fakeSender struct {
	sent      []string
	calls     int
	markdown  int
	rejectMd  bool
	failPlain bool
}

func (f *fakeSender) SendMessage(chatId int64, text string, opts *tgbotapi.SendMessageOpts) (*tgbotapi.Message, error) {
	f.calls++
	if opts != nil && opts.ParseMode == "MarkdownV2" {
		f.markdown++
	}
	if opts != nil && opts.ParseMode == "MarkdownV2" && f.rejectMd {
		return nil, errors.New("can't parse entities")
	}
	if f.failPlain {
		return nil, errors.New("network")
	}
	f.sent = append(f.sent, text)
	return &tgbotapi.Message{Text: text}, nil
}

func testBot(members *fakeMembers, sender *fakeSender) *TgBot {
	return &TgBot{
		log:     logger.Discard(),
		members: members,
		sender:  sender,
		config:  BotConfig{GroupID: -100500, AdminChatID: 77},
	}
}

func TestVerifyMembership(t *testing.T) {
	members := &fakeMembers{members: map[int64]tgbotapi.ChatMember{
		1: tgbotapi.ChatMemberOwner{},
		2: tgbotapi.ChatMemberAdministrator{},
		3: tgbotapi.ChatMemberMember{},
		4: tgbotapi.ChatMemberRestricted{IsMember: true},
		5: tgbotapi.ChatMemberRestricted{IsMember: false},
		6: tgbotapi.ChatMemberLeft{},
		7: tgbotapi.ChatMemberBanned{},
	}}
	b := testBot(members, &fakeSender{})

	want := map[string]bool{"1": true, "2": true, "3": true, "4": true, "5": false, "6": false, "7": false}
	for id, expected := range want {
		ok, err := b.VerifyMembership(context.Background(), id)
		require.NoError(t, err, id)
		assert.Equal(t, expected, ok, id)
	}
	assert.Equal(t, int64(-100500), members.chatId)

	_, err := b.VerifyMembership(context.Background(), "99")
	assert.Error(t, err)
	_, err = b.VerifyMembership(context.Background(), "alice")
	assert.Error(t, err)
}

func TestVerifyMembershipPassesDeadline(t *testing.T) {
	members := &fakeMembers{members: map[int64]tgbotapi.ChatMember{3: tgbotapi.ChatMemberMember{}}}
	b := testBot(members, &fakeSender{})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := b.VerifyMembership(ctx, "3")
	require.NoError(t, err)
	require.NotNil(t, members.opts.RequestOpts)
	assert.True(t, members.opts.RequestOpts.Timeout > 0)
	assert.True(t, members.opts.RequestOpts.Timeout <= 2*time.Second)
}

func TestVerifyMembershipWithoutGroup(t *testing.T) {
	b := testBot(&fakeMembers{}, &fakeSender{})
	b.config.GroupID = 0
	_, err := b.VerifyMembership(context.Background(), "3")
	assert.Error(t, err)
}

func TestNotify(t *testing.T) {
	sender := &fakeSender{rejectMd: true}
	b := testBot(&fakeMembers{}, sender)

	require.NoError(t, b.Notify("ERROR ledger.version conflict retries exhausted (wallet: 0x-a1)"))
	assert.Equal(t, []string{"ERROR ledger.version conflict retries exhausted (wallet: 0x-a1)"}, sender.sent)
	assert.Equal(t, 1, sender.calls, "alerts go out in one call")
	assert.Zero(t, sender.markdown)

	sender.sent = nil
	long := strings.Repeat(strings.Repeat("x", 99)+"\n", 50)
	require.NoError(t, b.Notify(long))
	assert.Len(t, sender.sent, 2)
	assert.Equal(t, long, strings.Join(sender.sent, ""))

	sender.failPlain = true
	sender.rejectMd = false
	assert.Error(t, b.Notify("lost"))

	b.config.AdminChatID = 0
	assert.NoError(t, b.Notify("nobody listening"))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "high\\_score", Sanitize("high_score"))
	assert.Equal(t, "a\\.b\\!", Sanitize("a.b!"))
}
