package repository

import (
	"context"
	"sort"
	"time"

	"pmchat-backend/internal/conversation/domain"
	"pmchat-backend/pkg/docstore"
)

type docstoreConversationRepository struct {
	store docstore.Store
}

// NewConversationRepository creates a new document-store backed ConversationRepository
func NewConversationRepository(store docstore.Store) ConversationRepository {
	return &docstoreConversationRepository{store: store}
}

func (r *docstoreConversationRepository) AppendMessage(ctx context.Context, email, conversationID string, msg domain.Message, name string) (*domain.Conversation, error) {
	coll := domain.Collection(email)
	var result domain.Conversation

	err := r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		now := time.Now()
		snap, err := tx.Get(coll, conversationID)
		if err != nil && !docstore.IsNotFound(err) {
			return err
		}

		if docstore.IsNotFound(err) {
			conv := domain.Conversation{
				ID:        conversationID,
				Owner:     email,
				Name:      name,
				Messages:  []domain.Message{msg},
				CreatedAt: now,
				UpdatedAt: now,
			}
			if conv.Name == "" {
				conv.Name = domain.DefaultName(msg.Content)
			}
			result = conv
			return tx.Set(coll, conversationID, conv)
		}

		var conv domain.Conversation
		if err := snap.DataTo(&conv); err != nil {
			return err
		}
		conv.ID = snap.ID()
		conv.Messages = append(conv.Messages, msg)
		conv.UpdatedAt = now

		fields := map[string]interface{}{
			"messages":  conv.Messages,
			"updatedAt": now,
		}
		if name != "" {
			conv.Name = name
			fields["name"] = name
		}
		result = conv
		return tx.Update(coll, conversationID, fields)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *docstoreConversationRepository) List(ctx context.Context, email string) ([]domain.Summary, error) {
	snaps, err := r.store.List(ctx, domain.Collection(email))
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.Summary, 0, len(snaps))
	for _, snap := range snaps {
		var conv domain.Conversation
		if err := snap.DataTo(&conv); err != nil {
			return nil, err
		}
		summaries = append(summaries, domain.Summary{
			ID:        snap.ID(),
			Name:      conv.Name,
			UpdatedAt: conv.UpdatedAt,
		})
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries, nil
}

func (r *docstoreConversationRepository) Get(ctx context.Context, email, conversationID string) (*domain.Conversation, error) {
	snap, err := r.store.Get(ctx, domain.Collection(email), conversationID)
	if err != nil {
		if docstore.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var conv domain.Conversation
	if err := snap.DataTo(&conv); err != nil {
		return nil, err
	}
	conv.ID = snap.ID()
	if conv.Messages == nil {
		conv.Messages = []domain.Message{}
	}
	return &conv, nil
}

func (r *docstoreConversationRepository) Rename(ctx context.Context, email, conversationID, name string) error {
	return r.store.Update(ctx, domain.Collection(email), conversationID, map[string]interface{}{
		"name":      name,
		"updatedAt": time.Now(),
	})
}

func (r *docstoreConversationRepository) Delete(ctx context.Context, email, conversationID string) error {
	return r.store.Delete(ctx, domain.Collection(email), conversationID)
}
