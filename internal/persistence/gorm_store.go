package persistence

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/sajinavi2006/julomvp-sub065/pkg/api"
)

// SubjectPo is the gorm row for a subject.
type SubjectPo struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Workflow  string    `gorm:"column:workflow"`
	Status    int       `gorm:"column:status"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (SubjectPo) TableName() string { return "subjects" }

// HistoryPo is the gorm row for one audit ledger entry.
type HistoryPo struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	SubjectID string    `gorm:"column:subject_id;index:idx_history_subject"`
	StatusOld int       `gorm:"column:status_old"`
	StatusNew int       `gorm:"column:status_new"`
	Reason    string    `gorm:"column:reason"`
	Note      string    `gorm:"column:note"`
	Actor     string    `gorm:"column:actor"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (HistoryPo) TableName() string { return "status_history" }

type gormTxKey struct{}

// WithGormTx attaches the unit-of-work *gorm.DB to a context.
func WithGormTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, gormTxKey{}, tx)
}

// GormTxFromContext returns the transaction the current hook runs inside.
func GormTxFromContext(ctx context.Context) (*gorm.DB, bool) {
	tx, ok := ctx.Value(gormTxKey{}).(*gorm.DB)
	return tx, ok
}

// GormStore is a Store backed by any database gorm supports; the caller
// supplies the connected *gorm.DB (and therefore picks the driver). Intended
// for server-class deployments where the embedded SQLite store does not fit.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

// NewGormStore migrates the subject and history tables and returns the store.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&SubjectPo{}, &HistoryPo{}); err != nil {
		return nil, errors.Wrap(err, "migrate schema")
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) CreateSubject(ctx context.Context, subject *api.Subject) error {
	now := time.Now()
	po := SubjectPo{
		ID:        subject.ID,
		Workflow:  subject.Workflow,
		Status:    int(subject.Status),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&po).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			return ErrDuplicateSubject
		}
		return errors.Wrap(err, "insert subject")
	}
	subject.CreatedAt = now
	subject.UpdatedAt = now
	return nil
}

func (s *GormStore) GetSubject(ctx context.Context, id string) (*api.Subject, error) {
	var po SubjectPo
	err := s.db.WithContext(ctx).First(&po, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubjectNotFound
		}
		return nil, err
	}
	return po.toSubject(), nil
}

func (s *GormStore) ApplyTransition(ctx context.Context, rec *api.HistoryRecord, hook func(ctx context.Context) error) (int64, error) {
	var historyID int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		res := tx.Model(&SubjectPo{}).
			Where("id = ? AND status = ?", rec.SubjectID, int(rec.StatusOld)).
			Updates(map[string]any{
				"status":     int(rec.StatusNew),
				"updated_at": now,
			})
		if res.Error != nil {
			return errors.Wrap(res.Error, "update subject status")
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&SubjectPo{}).Where("id = ?", rec.SubjectID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrSubjectNotFound
			}
			return ErrStaleSubject
		}

		createdAt := rec.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		po := HistoryPo{
			SubjectID: rec.SubjectID,
			StatusOld: int(rec.StatusOld),
			StatusNew: int(rec.StatusNew),
			Reason:    rec.Reason,
			Note:      rec.Note,
			Actor:     rec.Actor,
			CreatedAt: createdAt,
		}
		if err := tx.Create(&po).Error; err != nil {
			return errors.Wrap(err, "append history")
		}
		historyID = po.ID

		if hook != nil {
			if err := hook(WithGormTx(ctx, tx)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return historyID, nil
}

func (s *GormStore) HistoryFor(ctx context.Context, subjectID string) ([]api.HistoryRecord, error) {
	var pos []HistoryPo
	err := s.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("id ASC").
		Find(&pos).Error
	if err != nil {
		return nil, err
	}
	out := make([]api.HistoryRecord, 0, len(pos))
	for _, po := range pos {
		out = append(out, api.HistoryRecord{
			ID:        po.ID,
			SubjectID: po.SubjectID,
			StatusOld: api.StatusCode(po.StatusOld),
			StatusNew: api.StatusCode(po.StatusNew),
			Reason:    po.Reason,
			Note:      po.Note,
			Actor:     po.Actor,
			CreatedAt: po.CreatedAt,
		})
	}
	return out, nil
}

func (po *SubjectPo) toSubject() *api.Subject {
	return &api.Subject{
		ID:        po.ID,
		Workflow:  po.Workflow,
		Status:    api.StatusCode(po.Status),
		CreatedAt: po.CreatedAt,
		UpdatedAt: po.UpdatedAt,
	}
}
