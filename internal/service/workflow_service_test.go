package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sardorbek21324/Kairos-team/internal/models"
	"github.com/sardorbek21324/Kairos-team/internal/report"
	"github.com/sardorbek21324/Kairos-team/internal/repository"
	"github.com/sardorbek21324/Kairos-team/pkg/config"
	appErrors "github.com/sardorbek21324/Kairos-team/pkg/errors"
)

const (
	testGuild        = uint64(900)
	roleEditor       = uint64(1)
	roleOperator     = uint64(2)
	roleCEO          = uint64(3)
	roleStaff        = uint64(4)
	chShootingReport = uint64(10)
	chShootingReview = uint64(11)
	chEditingReport  = uint64(12)
	chEditingReview  = uint64(13)
	chPublishReview  = uint64(14)
	chDone           = uint64(15)
	chMissing        = uint64(99)
	operatorID       = uint64(111)
	editorID         = uint64(222)
	ceoID            = uint64(333)
	staffID          = uint64(444)
	strangerID       = uint64(555)
)

var testNow = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

type gatewayStub struct {
	mu        sync.Mutex
	nextID    uint64
	messages  map[models.MessageRef]*models.PostedMessage
	posts     []postedCall
	edits     []models.MessageRef
	dms       map[uint64][]string
	dmErr     error
	editErr   error
	missing   map[uint64]bool
	access    map[uint64]models.ChannelAccess
	fetchHook func()
}

type postedCall struct {
	channelID uint64
	msg       models.OutboundMessage
	ref       models.MessageRef
}

func newGatewayStub() *gatewayStub {
	return &gatewayStub{
		nextID:   1000,
		messages: make(map[models.MessageRef]*models.PostedMessage),
		dms:      make(map[uint64][]string),
		missing:  map[uint64]bool{chMissing: true},
		access:   make(map[uint64]models.ChannelAccess),
	}
}

func copyPosted(p *models.PostedMessage) *models.PostedMessage {
	out := *p
	out.Controls = append([]models.Control(nil), p.Controls...)
	if p.Document != nil {
		doc := *p.Document
		doc.Fields = append([]report.Field(nil), p.Document.Fields...)
		out.Document = &doc
	}
	return &out
}

func (g *gatewayStub) Post(ctx context.Context, channelID uint64, msg models.OutboundMessage) (*models.PostedMessage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.missing[channelID] {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "unknown channel")
	}
	g.nextID++
	ref := models.MessageRef{GuildID: testGuild, ChannelID: channelID, MessageID: g.nextID}
	posted := &models.PostedMessage{
		Ref:      ref,
		JumpURL:  fmt.Sprintf("https://discord.com/channels/%d/%d/%d", testGuild, channelID, g.nextID),
		Document: msg.Document,
		Controls: msg.Controls,
	}
	g.messages[ref] = copyPosted(posted)
	g.posts = append(g.posts, postedCall{channelID: channelID, msg: msg, ref: ref})
	return copyPosted(posted), nil
}

func (g *gatewayStub) Edit(ctx context.Context, ref models.MessageRef, msg models.OutboundMessage) (*models.PostedMessage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.editErr != nil {
		return nil, g.editErr
	}
	current, ok := g.messages[ref]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "unknown message")
	}
	if msg.Document != nil {
		current.Document = msg.Document
	}
	current.Controls = msg.Controls
	g.edits = append(g.edits, ref)
	return copyPosted(current), nil
}

func (g *gatewayStub) Fetch(ctx context.Context, ref models.MessageRef) (*models.PostedMessage, error) {
	if g.fetchHook != nil {
		g.fetchHook()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	current, ok := g.messages[ref]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "unknown message")
	}
	return copyPosted(current), nil
}

func (g *gatewayStub) DirectMessage(ctx context.Context, userID uint64, content string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.dmErr != nil {
		return g.dmErr
	}
	g.dms[userID] = append(g.dms[userID], content)
	return nil
}

func (g *gatewayStub) ChannelAccess(ctx context.Context, channelID, userID uint64) (models.ChannelAccess, error) {
	if access, ok := g.access[channelID]; ok {
		return access, nil
	}
	return models.ChannelAccess{}, appErrors.Clone(appErrors.ErrNotFound, "unknown channel")
}

func (g *gatewayStub) postsTo(channelID uint64) []postedCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []postedCall
	for _, p := range g.posts {
		if p.channelID == channelID {
			out = append(out, p)
		}
	}
	return out
}

func (g *gatewayStub) message(ref models.MessageRef) *models.PostedMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	return copyPosted(g.messages[ref])
}

type responderStub struct {
	mu       sync.Mutex
	replies  []string
	forms    []models.Form
	deferred int
}

func (r *responderStub) Reply(ctx context.Context, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, content)
	return nil
}

func (r *responderStub) OpenForm(ctx context.Context, form models.Form) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forms = append(r.forms, form)
	return nil
}

func (r *responderStub) Defer(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deferred++
	return nil
}

func testRoles() config.RoleConfig {
	return config.RoleConfig{Editor: roleEditor, Operator: roleOperator, CEO: roleCEO, Staff: []uint64{roleStaff}}
}

func newTestWorkflow(t *testing.T, channels config.ChannelConfig) (*WorkflowService, *gatewayStub) {
	t.Helper()
	policy, err := LoadPermissionPolicy("", testRoles())
	require.NoError(t, err)
	gateway := newGatewayStub()
	svc := NewWorkflowService(gateway, policy, repository.NewMemoryDecisionLock(), WorkflowServiceConfig{
		Channels:        channels,
		Roles:           testRoles(),
		OutboundTimeout: time.Second,
	}, nil, WithWorkflowClock(func() time.Time { return testNow }), WithWorkflowMetrics(NewMetricsService()))
	return svc, gateway
}

func allChannels() config.ChannelConfig {
	return config.ChannelConfig{
		ShootingReport: chShootingReport,
		ShootingReview: chShootingReview,
		EditingReport:  chEditingReport,
		EditingReview:  chEditingReview,
		PublishReview:  chPublishReview,
		Done:           chDone,
	}
}

func actor(id uint64, name string, roles ...uint64) models.Actor {
	return models.Actor{ID: id, DisplayName: name, RoleIDs: roles, InGuild: true}
}

var (
	operator = actor(operatorID, "operator.anna", roleOperator)
	editor   = actor(editorID, "editor.boris", roleEditor)
	ceo      = actor(ceoID, "ceo.vera", roleCEO)
	staff    = actor(staffID, "staff.gleb", roleStaff)
	stranger = actor(strangerID, "stranger")
)

func scenarioShootingValues() map[string]string {
	return map[string]string{
		InputShootingDate:     "2024-01-15",
		InputShootingLocation: "Studio A",
		InputShootingCount:    "3",
		InputShootingDrive:    "https://drive.example/x",
	}
}

func editingValues() map[string]string {
	return map[string]string{
		InputEditingProject: "Instagram",
		InputEditingCount:   "2",
		InputEditingDrive:   "https://drive.example/edit",
	}
}

func submitShooting(t *testing.T, svc *WorkflowService, gw *gatewayStub) postedCall {
	t.Helper()
	r := &responderStub{}
	err := svc.Submit(context.Background(), report.KindShooting, models.Interaction{Actor: operator, Values: scenarioShootingValues()}, r)
	require.NoError(t, err)
	posts := gw.postsTo(chShootingReview)
	require.NotEmpty(t, posts)
	return posts[len(posts)-1]
}

func clickFrom(gw *gatewayStub, ref models.MessageRef, who models.Actor, values map[string]string) models.Interaction {
	return models.Interaction{Actor: who, Source: gw.message(ref), ChannelID: ref.ChannelID, Values: values}
}

func comment(text string) map[string]string {
	return map[string]string{InputDecisionComment: text}
}

func fieldNames(fields []report.Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Name
	}
	return out
}

func requireCode(t *testing.T, err error, target *appErrors.Error) *appErrors.Error {
	t.Helper()
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr), "unexpected error %v", err)
	require.Equal(t, target.Code, appErr.Code, appErr.Message)
	return appErr
}
