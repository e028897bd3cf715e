package pdf

import (
	"context"
	"database/sql"
	"path/filepath"
	"time"

	"planlux/hale-sync/config"
	s "planlux/hale-sync/data/sql"
	"planlux/hale-sync/log"
	"planlux/hale-sync/offer"
	"planlux/hale-sync/outbox"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	StatusCreated = "PDF_CREATED"
	StatusError   = "ERROR"
)

// Renderer turns offer HTML into a document at outputPath and returns the
// path of the written file.
type Renderer interface {
	PrintToPdf(ctx context.Context, html, outputPath string) (string, error)
}

type enqueuer interface {
	Enqueue(ctx context.Context, op outbox.OperationType, payload interface{}) (*outbox.Record, error)
}

type Request struct {
	OfferID     string
	OfferNumber string
	UserID      string
	ClientName  string
	HTML        string
	TotalPln    float64
	WidthM      float64
	LengthM     float64
	HeightM     float64
	AreaM2      float64
	VariantHali string
}

type Record struct {
	Id           string
	OfferID      string
	UserID       string
	ClientName   string
	FilePath     string
	FileName     string
	Status       string
	ErrorMessage string
	TotalPln     float64
	WidthM       float64
	LengthM      float64
	HeightM      float64
	AreaM2       float64
	VariantHali  string
	CreatedAt    time.Time
}

type queryProvider interface {
	PdfInsertSql() string
}

type Service struct {
	db        *sql.DB
	qp        queryProvider
	renderer  Renderer
	outbox    enqueuer
	outputDir string
	now       func() time.Time
}

func NewService(db *sql.DB, cfg *config.Config, r Renderer, o enqueuer) *Service {
	return &Service{
		db:        db,
		qp:        newQueryProvider(cfg.DBDriver),
		renderer:  r,
		outbox:    o,
		outputDir: cfg.PdfOutputDir,
		now:       time.Now,
	}
}

// Generate renders the offer, records the outcome locally and queues a
// LOG_PDF operation for the backend. The log is queued for failed renders as
// well; the renderer error is then returned to the caller.
func (sv *Service) Generate(ctx context.Context, req Request) (*Record, error) {
	fileName := offer.PdfFileName(req.OfferNumber)

	rec := &Record{
		Id:          uuid.New().String(),
		OfferID:     req.OfferID,
		UserID:      req.UserID,
		ClientName:  req.ClientName,
		FileName:    fileName,
		Status:      StatusCreated,
		TotalPln:    req.TotalPln,
		WidthM:      req.WidthM,
		LengthM:     req.LengthM,
		HeightM:     req.HeightM,
		AreaM2:      req.AreaM2,
		VariantHali: req.VariantHali,
		CreatedAt:   sv.now().UTC(),
	}

	path, renderErr := sv.renderer.PrintToPdf(ctx, req.HTML, filepath.Join(sv.outputDir, fileName))
	if renderErr != nil {
		rec.Status = StatusError
		rec.ErrorMessage = renderErr.Error()
		log.Logger.WithError(renderErr).WithField("offer_id", req.OfferID).Error("unable to render offer pdf")
	} else {
		rec.FilePath = path
	}

	if err := sv.insert(ctx, rec); err != nil {
		return nil, err
	}

	_, err := sv.outbox.Enqueue(ctx, outbox.OpLogPdf, outbox.PdfLogPayload{
		PdfID:       rec.Id,
		OfferID:     rec.OfferID,
		UserID:      rec.UserID,
		ClientName:  rec.ClientName,
		FileName:    rec.FileName,
		Status:      rec.Status,
		TotalPln:    rec.TotalPln,
		WidthM:      rec.WidthM,
		LengthM:     rec.LengthM,
		HeightM:     rec.HeightM,
		AreaM2:      rec.AreaM2,
		VariantHali: rec.VariantHali,
	})
	if err != nil {
		return rec, errors.Wrap(err, "pdf: unable to queue pdf log")
	}

	log.Logger.WithFields(logrus.Fields{"offer_id": rec.OfferID, "file_name": rec.FileName, "status": rec.Status}).Info("offer pdf recorded")

	if renderErr != nil {
		return rec, errors.Wrap(renderErr, "pdf: render failed")
	}

	return rec, nil
}

func (sv *Service) insert(ctx context.Context, r *Record) error {
	var errMsg interface{}
	if r.ErrorMessage != "" {
		errMsg = r.ErrorMessage
	}

	_, err := sv.db.ExecContext(ctx, sv.qp.PdfInsertSql(),
		r.Id, r.OfferID, r.UserID, r.ClientName, r.FilePath, r.FileName, r.Status, errMsg,
		r.TotalPln, r.WidthM, r.LengthM, r.HeightM, r.AreaM2, r.VariantHali, r.CreatedAt.UnixMilli())
	if err != nil {
		return errors.Wrapf(err, "pdf: error storing pdf record for offer %s", r.OfferID)
	}

	return nil
}

func newQueryProvider(d config.DbDriver) queryProvider {
	switch true {
	case d.Postgres():
		return &s.PostgresQueryProvider{}
	case d.MySQL():
		return &s.MysqlQueryProvider{}
	}

	return &s.SqliteQueryProvider{}
}
