package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openhealth/shared-backend/internal/types"
)

// In-memory repo implementations for service tests. They ignore the tx
// argument; transactional behavior is covered by the repo layer itself.

type memVentureRepo struct {
	mu       sync.Mutex
	ventures map[uuid.UUID]*types.Venture
	saves    int
}

func newMemVentureRepo() *memVentureRepo {
	return &memVentureRepo{ventures: make(map[uuid.UUID]*types.Venture)}
}

func (r *memVentureRepo) Create(ctx context.Context, tx *gorm.DB, venture *types.Venture) (*types.Venture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	venture.ID = uuid.New()
	cp := *venture
	r.ventures[venture.ID] = &cp
	return venture, nil
}

func (r *memVentureRepo) Save(ctx context.Context, tx *gorm.DB, venture *types.Venture) (*types.Venture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	cp := *venture
	r.ventures[venture.ID] = &cp
	return venture, nil
}

func (r *memVentureRepo) GetByID(ctx context.Context, tx *gorm.DB, ventureID uuid.UUID) (*types.Venture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.ventures[ventureID]; ok {
		cp := *v
		return &cp, nil
	}
	return nil, nil
}

func (r *memVentureRepo) GetByConversation(ctx context.Context, tx *gorm.DB, convID uuid.UUID) (*types.Venture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.ventures {
		if v.ConversationID != nil && *v.ConversationID == convID {
			cp := *v
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memVentureRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Venture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Venture
	for _, v := range r.ventures {
		if v.UserID == userID {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memVentureRepo) List(ctx context.Context, tx *gorm.DB, status string, limit int) ([]*types.Venture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Venture
	for _, v := range r.ventures {
		if status == "" || v.Status == status {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memVentureRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, ventureID uuid.UUID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.ventures[ventureID]
	if !ok {
		return fmt.Errorf("venture %s not found", ventureID)
	}
	v.Status = status
	return nil
}

type memUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*types.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[uuid.UUID]*types.User)}
}

func (r *memUserRepo) Create(ctx context.Context, tx *gorm.DB, user *types.User) (*types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = uuid.New()
	cp := *user
	r.users[user.ID] = &cp
	return user, nil
}

func (r *memUserRepo) Save(ctx context.Context, tx *gorm.DB, user *types.User) (*types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *user
	r.users[user.ID] = &cp
	return user, nil
}

func (r *memUserRepo) GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (r *memUserRepo) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) EmailExists(ctx context.Context, tx *gorm.DB, email string) (bool, error) {
	u, _ := r.GetByEmail(ctx, tx, email)
	return u != nil, nil
}

func (r *memUserRepo) TouchLastActive(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	return nil
}

func (r *memUserRepo) Delete(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, userID)
	return nil
}

type memConversationRepo struct {
	mu    sync.Mutex
	convs map[uuid.UUID]*types.Conversation
}

func newMemConversationRepo() *memConversationRepo {
	return &memConversationRepo{convs: make(map[uuid.UUID]*types.Conversation)}
}

func (r *memConversationRepo) Create(ctx context.Context, tx *gorm.DB, conv *types.Conversation) (*types.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv.ID = uuid.New()
	if conv.Status == "" {
		conv.Status = types.ConversationStatusActive
	}
	cp := *conv
	r.convs[conv.ID] = &cp
	return conv, nil
}

func (r *memConversationRepo) GetByID(ctx context.Context, tx *gorm.DB, convID uuid.UUID) (*types.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.convs[convID]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (r *memConversationRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Conversation
	for _, c := range r.convs {
		if c.UserID == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memConversationRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, convID uuid.UUID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[convID]
	if !ok {
		return fmt.Errorf("conversation %s not found", convID)
	}
	c.Status = status
	return nil
}

func (r *memConversationRepo) Touch(ctx context.Context, tx *gorm.DB, convID uuid.UUID) error {
	return nil
}

type memMessageRepo struct {
	mu       sync.Mutex
	messages []*types.Message
	failNext bool
}

func newMemMessageRepo() *memMessageRepo {
	return &memMessageRepo{}
}

func (r *memMessageRepo) Create(ctx context.Context, tx *gorm.DB, msg *types.Message) (*types.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext {
		r.failNext = false
		return nil, fmt.Errorf("insert failed")
	}
	msg.ID = uuid.New()
	cp := *msg
	r.messages = append(r.messages, &cp)
	return msg, nil
}

func (r *memMessageRepo) ListByConversation(ctx context.Context, tx *gorm.DB, convID uuid.UUID, limit int) ([]*types.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Message
	for _, m := range r.messages {
		if m.ConversationID == convID {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	if limit <= 0 {
		limit = 100
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *memMessageRepo) MaxSeq(ctx context.Context, tx *gorm.DB, convID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var max int64
	for _, m := range r.messages {
		if m.ConversationID == convID && m.Seq > max {
			max = m.Seq
		}
	}
	return max, nil
}

type memMeetingRepo struct {
	mu       sync.Mutex
	meetings []*types.Meeting
}

func newMemMeetingRepo() *memMeetingRepo {
	return &memMeetingRepo{}
}

func (r *memMeetingRepo) Create(ctx context.Context, tx *gorm.DB, meeting *types.Meeting) (*types.Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	meeting.ID = uuid.New()
	cp := *meeting
	r.meetings = append(r.meetings, &cp)
	return meeting, nil
}

func (r *memMeetingRepo) Save(ctx context.Context, tx *gorm.DB, meeting *types.Meeting) (*types.Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.meetings {
		if m.ID == meeting.ID {
			cp := *meeting
			r.meetings[i] = &cp
			return meeting, nil
		}
	}
	return nil, fmt.Errorf("meeting %s not found", meeting.ID)
}

func (r *memMeetingRepo) GetByID(ctx context.Context, tx *gorm.DB, meetingID uuid.UUID) (*types.Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.meetings {
		if m.ID == meetingID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memMeetingRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Meeting
	for _, m := range r.meetings {
		if m.UserID == userID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memMeetingRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, meetingID uuid.UUID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.meetings {
		if m.ID == meetingID {
			m.Status = status
			return nil
		}
	}
	return fmt.Errorf("meeting %s not found", meetingID)
}

type memSchemaRepo struct {
	mu      sync.Mutex
	schemas []*types.ExtractionSchema
}

func newMemSchemaRepo(active *types.ExtractionSchema) *memSchemaRepo {
	r := &memSchemaRepo{}
	if active != nil {
		if active.ID == uuid.Nil {
			active.ID = uuid.New()
		}
		active.IsActive = true
		r.schemas = append(r.schemas, active)
	}
	return r
}

func (r *memSchemaRepo) Create(ctx context.Context, tx *gorm.DB, schema *types.ExtractionSchema) (*types.ExtractionSchema, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	schema.ID = uuid.New()
	r.schemas = append(r.schemas, schema)
	return schema, nil
}

func (r *memSchemaRepo) GetByID(ctx context.Context, tx *gorm.DB, schemaID uuid.UUID) (*types.ExtractionSchema, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.schemas {
		if s.ID == schemaID {
			return s, nil
		}
	}
	return nil, nil
}

func (r *memSchemaRepo) GetActive(ctx context.Context, tx *gorm.DB, name string) (*types.ExtractionSchema, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.schemas {
		if s.Name == name && s.IsActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memSchemaRepo) GetByNameVersion(ctx context.Context, tx *gorm.DB, name string, version int) (*types.ExtractionSchema, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.schemas {
		if s.Name == name && s.Version == version {
			return s, nil
		}
	}
	return nil, nil
}

func (r *memSchemaRepo) ListByName(ctx context.Context, tx *gorm.DB, name string) ([]*types.ExtractionSchema, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.ExtractionSchema
	for _, s := range r.schemas {
		if name == "" || s.Name == name {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memSchemaRepo) MaxVersion(ctx context.Context, tx *gorm.DB, name string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	max := 0
	for _, s := range r.schemas {
		if s.Name == name && s.Version > max {
			max = s.Version
		}
	}
	return max, nil
}

func (r *memSchemaRepo) Activate(ctx context.Context, schemaID uuid.UUID) (*types.ExtractionSchema, *types.ExtractionSchema, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var target, previous *types.ExtractionSchema
	for _, s := range r.schemas {
		if s.ID == schemaID {
			target = s
		} else if s.IsActive {
			previous = s
		}
	}
	if target == nil {
		return nil, nil, fmt.Errorf("schema %s not found", schemaID)
	}
	for _, s := range r.schemas {
		if s.Name == target.Name {
			s.IsActive = false
		}
	}
	target.IsActive = true
	return target, previous, nil
}

type memWeightsRepo struct {
	mu   sync.Mutex
	rows []*types.ScoringWeights
}

func newMemWeightsRepo(active types.WeightMap) *memWeightsRepo {
	r := &memWeightsRepo{}
	if active != nil {
		r.rows = append(r.rows, &types.ScoringWeights{
			ID:       uuid.New(),
			Name:     DefaultWeightsName,
			Weights:  active,
			IsActive: true,
		})
	}
	return r
}

func (r *memWeightsRepo) Create(ctx context.Context, tx *gorm.DB, weights *types.ScoringWeights) (*types.ScoringWeights, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	weights.ID = uuid.New()
	r.rows = append(r.rows, weights)
	return weights, nil
}

func (r *memWeightsRepo) GetByID(ctx context.Context, tx *gorm.DB, weightsID uuid.UUID) (*types.ScoringWeights, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.rows {
		if w.ID == weightsID {
			return w, nil
		}
	}
	return nil, nil
}

func (r *memWeightsRepo) GetActive(ctx context.Context, tx *gorm.DB, name string) (*types.ScoringWeights, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.rows {
		if w.Name == name && w.IsActive {
			return w, nil
		}
	}
	return nil, nil
}

func (r *memWeightsRepo) List(ctx context.Context, tx *gorm.DB, name string) ([]*types.ScoringWeights, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.ScoringWeights
	for _, w := range r.rows {
		if name == "" || w.Name == name {
			out = append(out, w)
		}
	}
	return out, nil
}

func (r *memWeightsRepo) Activate(ctx context.Context, weightsID uuid.UUID) (*types.ScoringWeights, *types.ScoringWeights, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var target, previous *types.ScoringWeights
	for _, w := range r.rows {
		if w.ID == weightsID {
			target = w
		} else if w.IsActive {
			previous = w
		}
	}
	if target == nil {
		return nil, nil, fmt.Errorf("weight set %s not found", weightsID)
	}
	for _, w := range r.rows {
		if w.Name == target.Name {
			w.IsActive = false
		}
	}
	target.IsActive = true
	return target, previous, nil
}

type memAuditRepo struct {
	mu      sync.Mutex
	entries []*types.AuditLog
}

func (r *memAuditRepo) Create(ctx context.Context, tx *gorm.DB, entry *types.AuditLog) (*types.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = uuid.New()
	r.entries = append(r.entries, entry)
	return entry, nil
}

func (r *memAuditRepo) ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]*types.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries, nil
}
