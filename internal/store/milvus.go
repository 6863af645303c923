package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"docuchat/internal/config"
	"docuchat/pkg/logger"
)

// Milvus collection fields. Topics are stored "|"-joined so a scalar filter
// can match single topics with a like expression.
const (
	fieldChunkID    = "id"
	fieldDocumentID = "document_id"
	fieldOwner      = "owner"
	fieldDocType    = "doc_type"
	fieldTopics     = "topics"
	fieldVector     = "embedding"
)

// Milvus implements VectorIndex over one collection with cosine similarity.
type Milvus struct {
	client     client.Client
	collection string
	log        *logger.Logger
}

var _ VectorIndex = (*Milvus)(nil)

func NewMilvus(ctx context.Context, cfg config.MilvusConfig) (*Milvus, error) {
	c, err := client.NewClient(ctx, client.Config{Address: cfg.Address})
	if err != nil {
		return nil, fmt.Errorf("connect milvus: %w", err)
	}
	return &Milvus{
		client:     c,
		collection: cfg.Collection,
		log:        logger.New("store.milvus"),
	}, nil
}

// Close releases the underlying connection.
func (m *Milvus) Close() error {
	return m.client.Close()
}

func (m *Milvus) EnsureCollection(ctx context.Context, dimension int) error {
	exists, err := m.client.HasCollection(ctx, m.collection)
	if err != nil {
		return fmt.Errorf("check milvus collection: %w", err)
	}
	if !exists {
		schema := entity.NewSchema().
			WithName(m.collection).
			WithDescription("document chunk embeddings").
			WithField(entity.NewField().WithName(fieldChunkID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(64).WithIsPrimaryKey(true)).
			WithField(entity.NewField().WithName(fieldDocumentID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(64)).
			WithField(entity.NewField().WithName(fieldOwner).WithDataType(entity.FieldTypeVarChar).WithMaxLength(128)).
			WithField(entity.NewField().WithName(fieldDocType).WithDataType(entity.FieldTypeVarChar).WithMaxLength(32)).
			WithField(entity.NewField().WithName(fieldTopics).WithDataType(entity.FieldTypeVarChar).WithMaxLength(1024)).
			WithField(entity.NewField().WithName(fieldVector).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(dimension)))
		if err := m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("create milvus collection: %w", err)
		}
		idx, err := entity.NewIndexIvfFlat(entity.COSINE, 128)
		if err != nil {
			return fmt.Errorf("build milvus index: %w", err)
		}
		if err := m.client.CreateIndex(ctx, m.collection, fieldVector, idx, false); err != nil {
			return fmt.Errorf("create milvus index: %w", err)
		}
	}
	if err := m.client.LoadCollection(ctx, m.collection, false); err != nil {
		return fmt.Errorf("load milvus collection: %w", err)
	}
	return nil
}

func (m *Milvus) Upsert(ctx context.Context, records []VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	ids := make([]string, len(records))
	docIDs := make([]string, len(records))
	owners := make([]string, len(records))
	docTypes := make([]string, len(records))
	topics := make([]string, len(records))
	vectors := make([][]float32, len(records))
	for i, r := range records {
		ids[i] = r.ChunkID
		docIDs[i] = r.DocumentID
		owners[i] = r.Owner
		docTypes[i] = r.DocType
		topics[i] = "|" + strings.Join(r.Topics, "|") + "|"
		vectors[i] = r.Vector
	}
	dim := len(vectors[0])
	_, err := m.client.Insert(ctx, m.collection, "",
		entity.NewColumnVarChar(fieldChunkID, ids),
		entity.NewColumnVarChar(fieldDocumentID, docIDs),
		entity.NewColumnVarChar(fieldOwner, owners),
		entity.NewColumnVarChar(fieldDocType, docTypes),
		entity.NewColumnVarChar(fieldTopics, topics),
		entity.NewColumnFloatVector(fieldVector, dim, vectors),
	)
	if err != nil {
		return fmt.Errorf("insert vectors: %w", err)
	}
	return nil
}

func (m *Milvus) DeleteByIDs(ctx context.Context, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	quoted := make([]string, len(chunkIDs))
	for i, id := range chunkIDs {
		quoted[i] = fmt.Sprintf("%q", id)
	}
	expr := fmt.Sprintf("%s in [%s]", fieldChunkID, strings.Join(quoted, ", "))
	if err := m.client.Delete(ctx, m.collection, "", expr); err != nil {
		return fmt.Errorf("delete vectors: %w", err)
	}
	return nil
}

func (m *Milvus) Search(ctx context.Context, owner string, vector []float32, filter SearchFilter, topK int) ([]VectorHit, error) {
	expr := m.buildFilterExpression(owner, filter)
	sp, _ := entity.NewIndexIvfFlatSearchParam(10)

	results, err := m.client.Search(
		ctx, m.collection, []string{}, expr, []string{fieldChunkID},
		[]entity.Vector{entity.FloatVector(vector)},
		fieldVector, entity.COSINE, topK, sp,
	)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	var hits []VectorHit
	for _, res := range results {
		var idCol *entity.ColumnVarChar
		for _, field := range res.Fields {
			if field.Name() == fieldChunkID {
				idCol, _ = field.(*entity.ColumnVarChar)
			}
		}
		if idCol == nil {
			continue
		}
		idData := idCol.Data()
		for i := 0; i < res.ResultCount && i < len(idData); i++ {
			hits = append(hits, VectorHit{
				ChunkID:    idData[i],
				Similarity: float64(res.Scores[i]),
			})
		}
	}
	return hits, nil
}

func (m *Milvus) buildFilterExpression(owner string, filter SearchFilter) string {
	conditions := []string{fmt.Sprintf(`%s == %q`, fieldOwner, owner)}
	if len(filter.DocumentIDs) > 0 {
		quoted := make([]string, len(filter.DocumentIDs))
		for i, id := range filter.DocumentIDs {
			quoted[i] = fmt.Sprintf("%q", id)
		}
		conditions = append(conditions, fmt.Sprintf("%s in [%s]", fieldDocumentID, strings.Join(quoted, ", ")))
	}
	if filter.DocumentType != "" {
		conditions = append(conditions, fmt.Sprintf(`%s == %q`, fieldDocType, filter.DocumentType))
	}
	for _, topic := range filter.Topics {
		conditions = append(conditions, fmt.Sprintf(`%s like "%%|%s|%%"`, fieldTopics, topic))
	}
	return strings.Join(conditions, " and ")
}
