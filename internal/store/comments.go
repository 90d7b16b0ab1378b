package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rioux/courtspot/internal/docstore"
	"github.com/rioux/courtspot/internal/metrics"
	"github.com/rioux/courtspot/internal/model"
	"github.com/rioux/courtspot/internal/security"
	"github.com/rioux/courtspot/internal/session"
)

// CommentStore はコメントコレクションのリソースストア。
// コメントはUIからは追記のみで、表示は作成日時の降順。
type CommentStore struct {
	docs      docstore.Store
	session   *session.Store
	sanitizer security.TextSanitizerService
	metrics   metrics.Collector
	logger    *slog.Logger

	mu        sync.Mutex
	items     []model.Comment
	loading   bool
	lastError error
	listSeq   uint64
}

// NewCommentStore はCommentStoreを生成する。
func NewCommentStore(docs docstore.Store, sess *session.Store, sanitizer security.TextSanitizerService, collector metrics.Collector, logger *slog.Logger) *CommentStore {
	return &CommentStore{
		docs:      docs,
		session:   sess,
		sanitizer: sanitizer,
		metrics:   collector,
		logger:    logger,
	}
}

// Items は現在の取得結果を返す。
func (s *CommentStore) Items() []model.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]model.Comment, len(s.items))
	copy(items, s.items)
	return items
}

// Loading は取得処理が進行中かを返す。
func (s *CommentStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err は直近の操作エラーを返す。
func (s *CommentStore) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// FetchComments は指定施設のコメントを作成日時の降順で取得する。
// 失敗時はitemsを変更せず、エラーをエラースロットに記録する。
func (s *CommentStore) FetchComments(ctx context.Context, locationID string) {
	s.mu.Lock()
	s.loading = true
	s.lastError = nil
	s.listSeq++
	seq := s.listSeq
	s.mu.Unlock()

	docs, err := s.docs.Query(ctx, docstore.CollectionComments,
		[]docstore.Filter{{Field: "locationId", Value: locationID}},
		&docstore.OrderBy{Field: "createdAt", Desc: true})

	var items []model.Comment
	if err == nil {
		items = make([]model.Comment, 0, len(docs))
		for _, doc := range docs {
			var c model.Comment
			if decodeErr := docstore.Decode(doc, &c); decodeErr != nil {
				err = decodeErr
				break
			}
			c.ID = doc.ID
			items = append(items, c)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.listSeq {
		s.metrics.RecordStaleListDiscard("comments")
		return
	}
	s.loading = false
	if err != nil {
		s.logger.Error("failed to fetch comments", "location_id", locationID, "error", err)
		s.lastError = model.NewRemoteFailureError(err)
		return
	}
	s.items = items
}

// AddComment はコメントを追加する。本文はサニタイズされ、
// 空になった場合は検証エラーとする。追加後、同じ施設のコメントを再取得する。
func (s *CommentStore) AddComment(ctx context.Context, locationID, text string) error {
	id := s.session.Identity()
	if id == nil {
		err := model.NewUnauthenticatedError("コメントの投稿")
		s.setError(err)
		return err
	}

	clean := s.sanitizer.Sanitize(text)
	if clean == "" {
		apiErr := model.NewValidationError("コメント本文は必須です")
		s.setError(apiErr)
		return apiErr
	}

	// プロバイダーが表示名を返さないアカウントもある
	displayName := id.DisplayName
	if displayName == "" {
		displayName = "Anonymous"
	}

	fields := map[string]any{
		"locationId":      locationID,
		"userId":          id.ID,
		"userDisplayName": displayName,
		"text":            clean,
		"createdAt":       docstore.ServerTimestamp,
	}

	if _, err := s.docs.Insert(ctx, docstore.CollectionComments, fields); err != nil {
		s.logger.Error("failed to add comment", "location_id", locationID, "error", err)
		apiErr := model.NewRemoteFailureError(err)
		s.setError(apiErr)
		return apiErr
	}

	s.FetchComments(ctx, locationID)
	return nil
}

// DeleteComment はコメントを削除し、同じ施設のコメントを再取得する。
// 現行仕様では認証済みユーザーなら誰でも削除でき、所有者チェックは行わない。
func (s *CommentStore) DeleteComment(ctx context.Context, locationID, commentID string) error {
	id := s.session.Identity()
	if id == nil {
		err := model.NewUnauthenticatedError("コメントの削除")
		s.setError(err)
		return err
	}

	if err := s.docs.Remove(ctx, docstore.CollectionComments, commentID); err != nil {
		s.logger.Error("failed to delete comment", "comment_id", commentID, "error", err)
		apiErr := model.NewRemoteFailureError(err)
		s.setError(apiErr)
		return apiErr
	}

	s.FetchComments(ctx, locationID)
	return nil
}

func (s *CommentStore) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = err
}
