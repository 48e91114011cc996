package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"wisdom-core/internal/domain/entity"
)

// QdrantStore holds embedded questions and their answers for the semantic
// cache.
type QdrantStore struct {
	client         *qdrant.Client
	collectionName string
	maxAge         time.Duration
	log            logrus.FieldLogger
}

func NewQdrantStore(client *qdrant.Client, collectionName string, maxAge time.Duration, log logrus.FieldLogger) *QdrantStore {
	return &QdrantStore{
		client:         client,
		collectionName: collectionName,
		maxAge:         maxAge,
		log:            log.WithField("component", "qdrant"),
	}
}

func (s *QdrantStore) InitCollection(ctx context.Context, dim uint64) error {
	_, err := s.client.GetCollectionInfo(ctx, s.collectionName)
	if err != nil {
		st, ok := status.FromError(err)
		if !ok || st.Code() != codes.NotFound {
			return err
		}
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collectionName,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     dim,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
	}

	// Indexes for the freshness range filter and the exact-match filters.
	indexes := map[string]qdrant.FieldType{
		"created_at": qdrant.FieldType_FieldTypeInteger,
		"category":   qdrant.FieldType_FieldTypeKeyword,
		"language":   qdrant.FieldType_FieldTypeKeyword,
	}
	for field, fieldType := range indexes {
		_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collectionName,
			FieldName:      field,
			FieldType:      fieldType.Enum(),
			Wait:           qdrant.PtrOf(true),
		})
		if err != nil {
			s.log.WithError(err).WithField("field", field).Warn("could not create payload index (might already exist)")
		}
	}
	return nil
}

func (s *QdrantStore) Search(ctx context.Context, vector []float32, threshold float32, filters map[string]string) (*entity.Completion, float32, string, error) {
	var must []*qdrant.Condition
	for key, value := range filters {
		must = append(must, qdrant.NewMatch(key, value))
	}

	if s.maxAge > 0 {
		since := time.Now().Add(-s.maxAge).Unix()
		must = append(must, &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key: "created_at",
					Range: &qdrant.Range{
						Gte: qdrant.PtrOf(float64(since)),
					},
				},
			},
		})
	}

	res, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collectionName,
		Query:          qdrant.NewQuery(vector...),
		Filter:         &qdrant.Filter{Must: must},
		Limit:          qdrant.PtrOf(uint64(1)),
		WithPayload:    qdrant.NewWithPayload(true),
		ScoreThreshold: &threshold,
	})
	if err != nil || len(res) == 0 {
		return nil, 0, "", err
	}

	hit := res[0]
	completion := &entity.Completion{
		Content: hit.Payload["content"].GetStringValue(),
		Model:   hit.Payload["model"].GetStringValue(),
	}
	return completion, hit.Score, hit.Payload["prompt"].GetStringValue(), nil
}

func (s *QdrantStore) Save(ctx context.Context, prompt string, resp *entity.Completion, vector []float32, metadata map[string]any) error {
	payload := map[string]any{
		"prompt":     prompt,
		"content":    resp.Content,
		"model":      resp.Model,
		"created_at": time.Now().Unix(),
	}
	for k, v := range metadata {
		payload[k] = v
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collectionName,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewIDUUID(uuid.NewString()),
				Vectors: qdrant.NewVectors(vector...),
				Payload: qdrant.NewValueMap(payload),
			},
		},
	})
	return err
}
