package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/veisher/licensebot/core/config"
	"github.com/veisher/licensebot/core/logger"
	"github.com/veisher/licensebot/core/telegram/router"
	"github.com/veisher/licensebot/services/licensing"

	tele "gopkg.in/telebot.v4"
)

func TestMain(m *testing.M) {
	_ = logger.InitLogger(&coreconfig.Config{
		Logging: coreconfig.LoggingConfig{Level: "error", Format: "kv"},
	})
	os.Exit(m.Run())
}

// recorderContext is a minimal tele.Context implementation that records
// outbound calls. Methods the handlers never touch stay on the embedded
// nil interface and panic loudly if reached.
type recorderContext struct {
	tele.Context

	user     *tele.User
	chat     *tele.Chat
	text     string
	callback *tele.Callback
	update   tele.Update
	store    map[string]interface{}

	sent      []sentMessage
	edits     []sentMessage
	responses []*tele.CallbackResponse
}

type sentMessage struct {
	text   string
	markup *tele.ReplyMarkup
}

func newRecorder() *recorderContext {
	return &recorderContext{
		user:  &tele.User{ID: 42, Username: "trader"},
		chat:  &tele.Chat{ID: 42},
		store: make(map[string]interface{}),
	}
}

func (c *recorderContext) withText(text string) *recorderContext {
	c.text = text
	c.update = tele.Update{ID: 1, Message: &tele.Message{Text: text, Sender: c.user, Chat: c.chat}}
	return c
}

func (c *recorderContext) withCallback(data string) *recorderContext {
	c.callback = &tele.Callback{Data: data, Sender: c.user}
	c.update = tele.Update{ID: 1, Callback: c.callback}
	return c
}

func (c *recorderContext) Update() tele.Update { return c.update }
func (c *recorderContext) Sender() *tele.User { return c.user }
func (c *recorderContext) Chat() *tele.Chat { return c.chat }
func (c *recorderContext) Text() string { return c.text }
func (c *recorderContext) Callback() *tele.Callback { return c.callback }
func (c *recorderContext) Get(k string) interface{} { return c.store[k] }
func (c *recorderContext) Set(k string, v interface{}) { c.store[k] = v }

func (c *recorderContext) Send(what interface{}, opts ...interface{}) error {
	c.sent = append(c.sent, toSent(what, opts))
	return nil
}

func (c *recorderContext) Edit(what interface{}, opts ...interface{}) error {
	c.edits = append(c.edits, toSent(what, opts))
	return nil
}

func (c *recorderContext) Respond(resp ...*tele.CallbackResponse) error {
	if len(resp) == 0 {
		c.responses = append(c.responses, &tele.CallbackResponse{})
		return nil
	}
	c.responses = append(c.responses, resp[0])
	return nil
}

func toSent(what interface{}, opts []interface{}) sentMessage {
	m := sentMessage{text: fmt.Sprint(what)}
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil {
				m.markup = v.ReplyMarkup
			}
		case *tele.ReplyMarkup:
			m.markup = v
		}
	}
	return m
}

func markupActions(t *testing.T, m *tele.ReplyMarkup) []string {
	t.Helper()
	require.NotNil(t, m)
	var actions []string
	for _, row := range m.InlineKeyboard {
		for _, btn := range row {
			actions = append(actions, btn.Unique)
		}
	}
	return actions
}

func findButton(t *testing.T, m *tele.ReplyMarkup, unique string) tele.InlineButton {
	t.Helper()
	require.NotNil(t, m)
	for _, row := range m.InlineKeyboard {
		for _, btn := range row {
			if btn.Unique == unique {
				return btn
			}
		}
	}
	t.Fatalf("button %q not found", unique)
	return tele.InlineButton{}
}

type fakeLicensing struct {
	quote    licensing.PriceQuote
	priceErr error
	licenses []licensing.License
	listErr  error
	payErr   error

	priceCalls []string
	payCalls   []string
	listCalls  int
}

func (f *fakeLicensing) FetchPrice(_ context.Context, strategyID string) (licensing.PriceQuote, error) {
	f.priceCalls = append(f.priceCalls, strategyID)
	return f.quote, f.priceErr
}

func (f *fakeLicensing) FetchLicenses(_ context.Context) ([]licensing.License, error) {
	f.listCalls++
	return f.licenses, f.listErr
}

func (f *fakeLicensing) SubmitPayment(_ context.Context, strategyID string) error {
	f.payCalls = append(f.payCalls, strategyID)
	return f.payErr
}

func newTestApp(fake *fakeLicensing) *App {
	return New(&coreconfig.Config{}, fake)
}

func TestStartShowsMainMenu(t *testing.T) {
	a := newTestApp(&fakeLicensing{})
	rec := newRecorder().withText("/start")

	require.NoError(t, a.handleStart(rec))
	require.Len(t, rec.sent, 1)
	assert.Contains(t, rec.sent[0].text, "Welcome")
	assert.Equal(t, []string{actionCheckPrice, actionLicenses}, markupActions(t, rec.sent[0].markup))
	// one button per row
	assert.Len(t, rec.sent[0].markup.InlineKeyboard, 2)
}

func TestPricePromptMarksAwaiting(t *testing.T) {
	a := newTestApp(&fakeLicensing{})
	rec := newRecorder().withCallback("\fcheck_price")

	require.NoError(t, a.handlePricePrompt(rec))
	require.Len(t, rec.sent, 1)
	assert.Equal(t, textPricePrompt, rec.sent[0].text)
	assert.Equal(t, []string{actionMainMenu}, markupActions(t, rec.sent[0].markup))
	assert.Equal(t, awaitingStrategyInput, a.sessions.GetState(rec.user.ID))
}

func TestStrategyLookupSuccess(t *testing.T) {
	fake := &fakeLicensing{quote: licensing.PriceQuote{StrategyID: "NO-75", Price: "49.99"}}
	a := newTestApp(fake)
	a.sessions.SetState(42, awaitingStrategyInput)
	rec := newRecorder().withText("NO-75")

	require.NoError(t, a.handleStrategyInput(rec))
	require.Len(t, rec.sent, 1)
	assert.Contains(t, rec.sent[0].text, "NO-75")
	assert.Contains(t, rec.sent[0].text, "$49.99")

	pay := findButton(t, rec.sent[0].markup, actionPay)
	assert.Equal(t, "NO-75", pay.Data)
	assert.Equal(t, []string{actionPay, actionMainMenu}, markupActions(t, rec.sent[0].markup))

	assert.Equal(t, []string{"NO-75"}, fake.priceCalls)
	assert.False(t, a.sessions.HasState(42), "awaiting flag must clear after lookup")
}

func TestStrategyLookupRejectsBadFormat(t *testing.T) {
	fake := &fakeLicensing{}
	a := newTestApp(fake)
	rec := newRecorder().withText("hello")

	require.NoError(t, a.handleStrategyInput(rec))
	require.Len(t, rec.sent, 1)
	assert.Equal(t, textFormatCorrection, rec.sent[0].text)
	assert.Empty(t, fake.priceCalls, "invalid input must never reach the remote service")
}

func TestStrategyLookupServiceFailure(t *testing.T) {
	fake := &fakeLicensing{priceErr: &licensing.ServiceError{Op: "fetch price", StatusCode: http.StatusBadGateway}}
	a := newTestApp(fake)
	rec := newRecorder().withText("NO-75")

	require.NoError(t, a.handleStrategyInput(rec))
	require.Len(t, rec.sent, 1)
	assert.Equal(t, textPriceFailed, rec.sent[0].text)
}

func TestLicenseListRendersInOrder(t *testing.T) {
	fake := &fakeLicensing{licenses: []licensing.License{
		{StrategyID: "NO-75", ActivationCode: "AAA-111"},
		{StrategyID: "NO-3", ActivationCode: "BBB-222"},
	}}
	a := newTestApp(fake)
	rec := newRecorder().withCallback("\fmanage_license")

	require.NoError(t, a.handleLicenses(rec))
	require.Len(t, rec.sent, 1)
	text := rec.sent[0].text
	assert.Contains(t, text, "NO-75")
	assert.Contains(t, text, "AAA-111")
	assert.Contains(t, text, "BBB-222")
	assert.Less(t, strings.Index(text, "NO-75"), strings.Index(text, "NO-3"),
		"entries must keep the service response order")
	assert.Equal(t, []string{actionMainMenu}, markupActions(t, rec.sent[0].markup))
}

func TestLicenseListEmpty(t *testing.T) {
	a := newTestApp(&fakeLicensing{licenses: []licensing.License{}})
	rec := newRecorder().withCallback("\fmanage_license")

	require.NoError(t, a.handleLicenses(rec))
	require.Len(t, rec.sent, 1)
	assert.Equal(t, textNoLicenses, rec.sent[0].text)
}

func TestLicenseListFailure(t *testing.T) {
	a := newTestApp(&fakeLicensing{listErr: &licensing.ServiceError{Op: "fetch licenses", StatusCode: 500}})
	rec := newRecorder().withCallback("\fmanage_license")

	require.NoError(t, a.handleLicenses(rec))
	require.Len(t, rec.sent, 1)
	assert.Equal(t, textLicenseFailed, rec.sent[0].text)
}

func TestMainMenuEditsInPlace(t *testing.T) {
	a := newTestApp(&fakeLicensing{})
	a.sessions.SetState(42, awaitingStrategyInput)
	rec := newRecorder().withCallback("\fmain_menu")

	require.NoError(t, a.handleMainMenu(rec))
	assert.Empty(t, rec.sent, "main menu return must not send a new message")
	require.Len(t, rec.edits, 1)
	assert.Equal(t, textMenu, rec.edits[0].text)
	assert.False(t, a.sessions.HasState(42))
}

func TestPaymentSuccess(t *testing.T) {
	fake := &fakeLicensing{}
	a := newTestApp(fake)
	rec := newRecorder().withCallback("\fpay|NO-75")

	require.NoError(t, a.handlePayment(rec))
	assert.Equal(t, []string{"NO-75"}, fake.payCalls)
	require.Len(t, rec.sent, 1)
	assert.Equal(t, textPaySuccess, rec.sent[0].text)
}

func TestPaymentFailure(t *testing.T) {
	fake := &fakeLicensing{payErr: &licensing.ServiceError{Op: "submit payment", StatusCode: 500}}
	a := newTestApp(fake)
	rec := newRecorder().withCallback("\fpay|NO-75")

	require.NoError(t, a.handlePayment(rec))
	require.Len(t, rec.sent, 1)
	assert.Equal(t, textPayFailed, rec.sent[0].text)
}

func TestPaymentMissingPayload(t *testing.T) {
	fake := &fakeLicensing{}
	a := newTestApp(fake)
	rec := newRecorder().withCallback("\fpay")

	require.NoError(t, a.handlePayment(rec))
	assert.Empty(t, fake.payCalls)
	require.Len(t, rec.sent, 1)
	assert.Equal(t, textPayFailed, rec.sent[0].text)
}

// TestPaymentRecoversSubmittedCode walks scenario B end to end: the pay
// button built from a price quote must hand the identical strategy ID to
// the payment handler.
func TestPaymentRecoversSubmittedCode(t *testing.T) {
	fake := &fakeLicensing{quote: licensing.PriceQuote{StrategyID: "NO-75", Price: "49.99"}}
	a := newTestApp(fake)

	lookup := newRecorder().withText("NO-75")
	require.NoError(t, a.handleStrategyInput(lookup))
	pay := findButton(t, lookup.sent[0].markup, actionPay)

	press := newRecorder().withCallback("\f" + pay.Unique + "|" + pay.Data)
	require.NoError(t, a.handlePayment(press))
	assert.Equal(t, []string{"NO-75"}, fake.payCalls)
}

func TestCallbackRouteDispatch(t *testing.T) {
	a := newTestApp(&fakeLicensing{})
	reg := a.Registry()
	route := router.CallbackRoute(reg, router.CallbackOptions{})

	rec := newRecorder().withCallback("\fcheck_price")
	require.NoError(t, route.Handler(rec))
	require.Len(t, rec.sent, 1)
	assert.Equal(t, textPricePrompt, rec.sent[0].text)
	assert.NotEmpty(t, rec.responses, "button press must be acknowledged")
}

func TestCallbackRouteDispatchMiss(t *testing.T) {
	a := newTestApp(&fakeLicensing{})
	reg := a.Registry()
	route := router.CallbackRoute(reg, router.CallbackOptions{})

	rec := newRecorder().withCallback("\fbogus_action")
	require.NoError(t, route.Handler(rec))
	assert.Empty(t, rec.sent, "unmatched callbacks fire no handler")

	var alert string
	for _, resp := range rec.responses {
		if resp != nil && resp.Text != "" {
			alert = resp.Text
		}
	}
	assert.Equal(t, textUnsupportedAction, alert)
}

func TestTextRouteFallsBackToStrategyLookup(t *testing.T) {
	fake := &fakeLicensing{}
	a := newTestApp(fake)
	reg := a.Registry()
	routes := router.TextRoutes(a.sessions, reg, router.TextOptions{})

	rec := newRecorder().withText("hello")
	require.NoError(t, routes[0].Handler(rec))
	require.Len(t, rec.sent, 1)
	assert.Equal(t, textFormatCorrection, rec.sent[0].text)
	assert.Empty(t, fake.priceCalls)
}
