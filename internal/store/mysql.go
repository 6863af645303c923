package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"docuchat/internal/config"
	"docuchat/internal/models"
	"docuchat/pkg/logger"
)

// MySQL implements DocumentStore and ChunkStore on gorm. Chunk content also
// carries a FULLTEXT index that serves the keyword leg of hybrid retrieval.
type MySQL struct {
	db  *gorm.DB
	log *logger.Logger
}

var (
	_ DocumentStore = (*MySQL)(nil)
	_ ChunkStore    = (*MySQL)(nil)
)

// NewMySQL connects, migrates the schema and ensures the FULLTEXT index.
func NewMySQL(cfg config.MySQLConfig) (*MySQL, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.Username, cfg.Password, cfg.Address, cfg.Database)
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("mysql pool: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	if err := db.AutoMigrate(&models.Document{}, &models.Chunk{}); err != nil {
		return nil, fmt.Errorf("migrate mysql schema: %w", err)
	}
	// AutoMigrate cannot express a FULLTEXT index.
	db.Exec("CREATE FULLTEXT INDEX idx_chunks_content ON chunks (content)")

	return &MySQL{db: db, log: logger.New("store.mysql")}, nil
}

func (s *MySQL) CreateOrReuse(ctx context.Context, doc *models.Document) (*models.Document, bool, error) {
	var existing models.Document
	err := s.db.WithContext(ctx).
		Where("owner = ? AND filename = ?", doc.Owner, doc.Filename).
		First(&existing).Error
	if err == nil {
		existing.MimeType = doc.MimeType
		existing.SizeBytes = doc.SizeBytes
		existing.StoragePath = doc.StoragePath
		existing.Status = models.StatusPending
		existing.Error = ""
		if err := s.db.WithContext(ctx).Save(&existing).Error; err != nil {
			return nil, false, fmt.Errorf("reuse document: %w", err)
		}
		return &existing, true, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("lookup document: %w", err)
	}
	if err := s.db.WithContext(ctx).Create(doc).Error; err != nil {
		return nil, false, fmt.Errorf("create document: %w", err)
	}
	return doc, false, nil
}

func (s *MySQL) UpdateStatus(ctx context.Context, id, status, errMsg string) error {
	res := s.db.WithContext(ctx).Model(&models.Document{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "error": errMsg})
	if res.Error != nil {
		return fmt.Errorf("update document status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MySQL) SetMetadata(ctx context.Context, id string, meta models.DocumentMetadata, chunkCount int) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode document metadata: %w", err)
	}
	res := s.db.WithContext(ctx).Model(&models.Document{}).
		Where("id = ?", id).
		Updates(map[string]any{"metadata": datatypes.JSON(raw), "chunk_count": chunkCount})
	if res.Error != nil {
		return fmt.Errorf("set document metadata: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MySQL) Get(ctx context.Context, owner, id string) (*models.Document, error) {
	var doc models.Document
	err := s.db.WithContext(ctx).
		Where("id = ? AND owner = ?", id, owner).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &doc, nil
}

func (s *MySQL) ListByOwner(ctx context.Context, owner string) ([]models.Document, error) {
	var docs []models.Document
	err := s.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("created_at DESC").
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

func (s *MySQL) Delete(ctx context.Context, owner, id string) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND owner = ?", id, owner).
		Delete(&models.Document{})
	if res.Error != nil {
		return fmt.Errorf("delete document: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MySQL) ExistingRefs(ctx context.Context, documentID string) ([]ChunkRef, error) {
	var refs []ChunkRef
	err := s.db.WithContext(ctx).Model(&models.Chunk{}).
		Select("id", "content_hash", "chunk_index").
		Where("document_id = ?", documentID).
		Find(&refs).Error
	if err != nil {
		return nil, fmt.Errorf("load chunk refs: %w", err)
	}
	return refs, nil
}

func (s *MySQL) InsertBatch(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&chunks).Error; err != nil {
		return fmt.Errorf("insert chunk batch: %w", err)
	}
	return nil
}

func (s *MySQL) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Chunk{}).Error; err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	return nil
}

func (s *MySQL) DeleteByDocument(ctx context.Context, documentID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.Chunk{}).
		Where("document_id = ?", documentID).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list document chunks: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if err := s.db.WithContext(ctx).Where("document_id = ?", documentID).Delete(&models.Chunk{}).Error; err != nil {
		return nil, fmt.Errorf("delete document chunks: %w", err)
	}
	return ids, nil
}

func (s *MySQL) GetByIDs(ctx context.Context, ids []string) ([]models.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var chunks []models.Chunk
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&chunks).Error
	if err != nil {
		return nil, fmt.Errorf("get chunks: %w", err)
	}
	return chunks, nil
}

func (s *MySQL) FullTextSearch(ctx context.Context, owner, query string, filter SearchFilter, limit int) ([]models.Chunk, error) {
	tx := s.db.WithContext(ctx).Model(&models.Chunk{}).
		Select("*, MATCH(content) AGAINST(? IN NATURAL LANGUAGE MODE) AS relevance", query).
		Where("owner = ?", owner).
		Where("MATCH(content) AGAINST(? IN NATURAL LANGUAGE MODE)", query)
	tx = applyChunkFilter(tx, filter)
	var chunks []models.Chunk
	err := tx.Order("relevance DESC").
		Limit(limit).
		Find(&chunks).Error
	if err != nil {
		return nil, fmt.Errorf("fulltext search: %w", err)
	}
	return chunks, nil
}

func applyChunkFilter(tx *gorm.DB, filter SearchFilter) *gorm.DB {
	if len(filter.DocumentIDs) > 0 {
		tx = tx.Where("document_id IN ?", filter.DocumentIDs)
	}
	if filter.DocumentType != "" {
		tx = tx.Where("JSON_UNQUOTE(JSON_EXTRACT(metadata, '$.document_type')) = ?", filter.DocumentType)
	}
	for _, topic := range filter.Topics {
		tx = tx.Where("JSON_CONTAINS(metadata, JSON_QUOTE(?), '$.topics')", topic)
	}
	return tx
}
