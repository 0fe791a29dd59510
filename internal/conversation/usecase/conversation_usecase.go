package usecase

import (
	"context"
	"log"
	"math"
	"net/mail"
	"sort"
	"strings"
	"time"

	"pmchat-backend/internal/conversation/domain"
	"pmchat-backend/internal/conversation/repository"
	"pmchat-backend/pkg/apperror"
	"pmchat-backend/pkg/docstore"
	"pmchat-backend/pkg/fuzzy"

	"github.com/google/uuid"
)

const (
	indexTimeout    = 30 * time.Second
	maxKeywordScore = 150.0
)

type conversationUsecase struct {
	conversationRepo repository.ConversationRepository
	indexer          MessageIndexer
}

func NewConversationUsecase(conversationRepo repository.ConversationRepository) ConversationUsecase {
	return &conversationUsecase{conversationRepo: conversationRepo}
}

func (u *conversationUsecase) SetIndexer(indexer MessageIndexer) {
	u.indexer = indexer
}

func (u *conversationUsecase) AppendMessage(ctx context.Context, email, conversationID string, msg domain.Message, name string) (*domain.Conversation, error) {
	const op = "conversation.Append"
	if err := validateKey(op, email, conversationID); err != nil {
		return nil, err
	}
	if msg.Role == "" {
		msg.Role = domain.RoleUser
	}
	if !domain.ValidRole(msg.Role) {
		return nil, apperror.Validation(op, "invalid role %q", msg.Role)
	}
	if strings.TrimSpace(msg.Content) == "" {
		return nil, apperror.Validation(op, "content is required")
	}
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	conv, err := u.conversationRepo.AppendMessage(ctx, email, conversationID, msg, strings.TrimSpace(name))
	if err != nil {
		return nil, apperror.Store(op, err)
	}
	u.index(email, conversationID, msg)
	return conv, nil
}

func (u *conversationUsecase) ListConversations(ctx context.Context, email string) ([]domain.Summary, error) {
	const op = "conversation.List"
	if err := validateEmail(op, email); err != nil {
		return nil, err
	}
	list, err := u.conversationRepo.List(ctx, email)
	if err != nil {
		return nil, apperror.Store(op, err)
	}
	return list, nil
}

func (u *conversationUsecase) GetConversation(ctx context.Context, email, conversationID string) ([]domain.Message, error) {
	conv, err := u.get(ctx, "conversation.Get", email, conversationID)
	if err != nil {
		return nil, err
	}
	return conv.Messages, nil
}

func (u *conversationUsecase) RenameConversation(ctx context.Context, email, conversationID, name string) error {
	const op = "conversation.Rename"
	if err := validateKey(op, email, conversationID); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return apperror.Validation(op, "name is required")
	}
	if err := u.conversationRepo.Rename(ctx, email, conversationID, name); err != nil {
		if docstore.IsNotFound(err) {
			return apperror.NotFound(op, "conversation %s not found", conversationID)
		}
		return apperror.Store(op, err)
	}
	return nil
}

func (u *conversationUsecase) DeleteConversation(ctx context.Context, email, conversationID string) error {
	const op = "conversation.Delete"
	conv, err := u.get(ctx, op, email, conversationID)
	if err != nil {
		return err
	}
	if err := u.conversationRepo.Delete(ctx, email, conversationID); err != nil {
		return apperror.Store(op, err)
	}

	if u.indexer != nil {
		ids := make([]string, 0, len(conv.Messages))
		for _, m := range conv.Messages {
			ids = append(ids, m.ID)
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
			defer cancel()
			if err := u.indexer.DeleteMessages(ctx, conversationID, ids); err != nil {
				log.Printf("[Conversation] Failed to drop index for %s: %v", conversationID, err)
			}
		}()
	}
	return nil
}

func (u *conversationUsecase) Search(ctx context.Context, email, query string, limit int) ([]SearchResult, error) {
	const op = "conversation.Search"
	if err := validateEmail(op, email); err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return nil, apperror.Validation(op, "q is required")
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	if u.indexer == nil {
		return u.keywordSearch(ctx, op, email, query, limit)
	}

	hits, err := u.indexer.SemanticSearch(ctx, email, query, limit)
	if err != nil {
		return nil, apperror.Provider(op, err)
	}

	// Resolve hits against the stored conversations; stale index entries are skipped
	cache := map[string]*domain.Conversation{}
	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		conv, ok := cache[hit.ConversationID]
		if !ok {
			conv, err = u.conversationRepo.Get(ctx, email, hit.ConversationID)
			if err != nil {
				return nil, apperror.Store(op, err)
			}
			cache[hit.ConversationID] = conv
		}
		if conv == nil {
			continue
		}
		for _, m := range conv.Messages {
			if m.ID == hit.MessageID {
				results = append(results, SearchResult{
					ConversationID:   conv.ID,
					ConversationName: conv.Name,
					Message:          m,
					Distance:         hit.Distance,
				})
				break
			}
		}
	}
	return results, nil
}

// keywordSearch scans the owner's conversations with typo-tolerant matching.
// It serves search when no semantic index is configured.
func (u *conversationUsecase) keywordSearch(ctx context.Context, op, email, query string, limit int) ([]SearchResult, error) {
	summaries, err := u.conversationRepo.List(ctx, email)
	if err != nil {
		return nil, apperror.Store(op, err)
	}

	type scored struct {
		result SearchResult
		score  float64
	}
	var matches []scored
	for _, s := range summaries {
		conv, err := u.conversationRepo.Get(ctx, email, s.ID)
		if err != nil {
			return nil, apperror.Store(op, err)
		}
		if conv == nil {
			continue
		}
		for _, m := range conv.Messages {
			if m.Role == domain.RoleSystem {
				continue
			}
			score := fuzzy.Score(query, m.Content)
			if score == 0 {
				continue
			}
			matches = append(matches, scored{
				result: SearchResult{
					ConversationID:   conv.ID,
					ConversationName: conv.Name,
					Message:          m,
					Distance:         1 - math.Min(score, maxKeywordScore)/maxKeywordScore,
				},
				score: score,
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	results := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, m.result)
	}
	return results, nil
}

func (u *conversationUsecase) get(ctx context.Context, op, email, conversationID string) (*domain.Conversation, error) {
	if err := validateKey(op, email, conversationID); err != nil {
		return nil, err
	}
	conv, err := u.conversationRepo.Get(ctx, email, conversationID)
	if err != nil {
		return nil, apperror.Store(op, err)
	}
	if conv == nil {
		return nil, apperror.NotFound(op, "conversation %s not found", conversationID)
	}
	return conv, nil
}

// index sends a message to the semantic index in the background
func (u *conversationUsecase) index(email, conversationID string, msg domain.Message) {
	if u.indexer == nil || msg.Role == domain.RoleSystem {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
		defer cancel()
		if err := u.indexer.UpsertMessage(ctx, email, conversationID, msg.ID, string(msg.Role), msg.Content); err != nil {
			log.Printf("[Conversation] Failed to index message %s: %v", msg.ID, err)
		}
	}()
}

func validateEmail(op, email string) error {
	if email == "" {
		return apperror.Validation(op, "email is required")
	}
	if strings.Contains(email, "/") {
		return apperror.Validation(op, "invalid email %q", email)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return apperror.Validation(op, "invalid email %q", email)
	}
	return nil
}

func validateKey(op, email, conversationID string) error {
	if err := validateEmail(op, email); err != nil {
		return err
	}
	if conversationID == "" {
		return apperror.Validation(op, "conversation id is required")
	}
	if strings.Contains(conversationID, "/") {
		return apperror.Validation(op, "invalid conversation id %q", conversationID)
	}
	return nil
}
