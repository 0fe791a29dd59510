package chroma

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"pmchat-backend/pkg/config"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings/gemini"
)

const collectionName = "conversation_messages"

// maxEmbedRunes keeps documents under the embedding model's input limit
const maxEmbedRunes = 8000

// Hit is one semantic search match
type Hit struct {
	ConversationID string  `json:"conversationId"`
	MessageID      string  `json:"messageId"`
	Distance       float64 `json:"distance"`
}

type ChromaClient struct {
	client     chroma.Client
	collection chroma.Collection
}

func NewChromaClient(ctx context.Context, cfg *config.Config) (*ChromaClient, error) {
	if cfg.ChromaAPIKey == "" {
		return nil, fmt.Errorf("CHROMA_API_KEY is required")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required for embeddings")
	}

	// The embedding function reads its key from the environment
	os.Setenv("GEMINI_API_KEY", cfg.GeminiAPIKey)

	embedFunc, err := gemini.NewGeminiEmbeddingFunction(
		gemini.WithEnvAPIKey(),
		gemini.WithDefaultModel("text-embedding-004"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini embedding function: %w", err)
	}

	var client chroma.Client
	switch {
	case cfg.ChromaDatabase != "" && cfg.ChromaTenant != "":
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
			chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
			chroma.WithDatabaseAndTenant(cfg.ChromaDatabase, cfg.ChromaTenant),
		)
	case cfg.ChromaTenant != "":
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
			chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
			chroma.WithTenant(cfg.ChromaTenant),
		)
	default:
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
			chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Chroma client: %w", err)
	}

	collection, err := client.GetOrCreateCollection(
		ctx,
		collectionName,
		chroma.WithEmbeddingFunctionCreate(embedFunc),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	log.Printf("[Chroma] Initialized client with collection: %s", collectionName)
	return &ChromaClient{
		client:     client,
		collection: collection,
	}, nil
}

// documentID joins conversation and message IDs so hits can be mapped back
// without reading metadata
func documentID(conversationID, messageID string) chroma.DocumentID {
	return chroma.DocumentID(conversationID + ":" + messageID)
}

func splitDocumentID(id chroma.DocumentID) (string, string) {
	conv, msg, _ := strings.Cut(string(id), ":")
	return conv, msg
}

// UpsertMessage indexes one message. Upsert keeps re-indexing idempotent.
func (c *ChromaClient) UpsertMessage(ctx context.Context, owner, conversationID, messageID, role, content string) error {
	if r := []rune(content); len(r) > maxEmbedRunes {
		content = string(r[:maxEmbedRunes])
	}

	metadata, err := chroma.NewDocumentMetadataFromMap(map[string]interface{}{
		"owner":           owner,
		"conversation_id": conversationID,
		"role":            role,
	})
	if err != nil {
		return fmt.Errorf("failed to create metadata: %w", err)
	}

	err = c.collection.Upsert(
		ctx,
		chroma.WithIDs(documentID(conversationID, messageID)),
		chroma.WithMetadatas(metadata),
		chroma.WithTexts(content),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert message embedding: %w", err)
	}
	return nil
}

// SemanticSearch returns the owner's messages closest to query
func (c *ChromaClient) SemanticSearch(ctx context.Context, owner, query string, limit int) ([]Hit, error) {
	results, err := c.collection.Query(
		ctx,
		chroma.WithQueryTexts(query),
		chroma.WithNResults(limit),
		chroma.WithWhereQuery(chroma.EqString("owner", owner)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}
	if results == nil || results.CountGroups() == 0 {
		return []Hit{}, nil
	}

	idGroups := results.GetIDGroups()
	distanceGroups := results.GetDistancesGroups()
	if len(idGroups) == 0 {
		return []Hit{}, nil
	}

	hits := make([]Hit, 0, len(idGroups[0]))
	for i, id := range idGroups[0] {
		conv, msg := splitDocumentID(id)
		hit := Hit{ConversationID: conv, MessageID: msg}
		if len(distanceGroups) > 0 && i < len(distanceGroups[0]) {
			hit.Distance = float64(distanceGroups[0][i])
		}
		hits = append(hits, hit)
	}
	log.Printf("[Chroma] Search for %s returned %d hits", owner, len(hits))
	return hits, nil
}

// DeleteMessages removes the indexed messages of a conversation
func (c *ChromaClient) DeleteMessages(ctx context.Context, conversationID string, messageIDs []string) error {
	for _, id := range messageIDs {
		if err := c.collection.Delete(ctx, chroma.WithIDsDelete(documentID(conversationID, id))); err != nil {
			return fmt.Errorf("failed to delete message embedding: %w", err)
		}
	}
	return nil
}
