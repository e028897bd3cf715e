package outbox

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// ErrMalformedPayload is returned when a stored payload cannot be decoded
// into the shape its operation type requires.
var ErrMalformedPayload = errors.New("outbox: malformed payload")

type HeartbeatPayload struct {
	DeviceID   string `json:"deviceId"`
	AppVersion string `json:"appVersion"`
	UserID     string `json:"userId,omitempty"`
	SentAt     string `json:"sentAt"`
}

type PdfLogPayload struct {
	PdfID       string  `json:"pdfId"`
	OfferID     string  `json:"offerId"`
	UserID      string  `json:"userId"`
	ClientName  string  `json:"clientName"`
	FileName    string  `json:"fileName"`
	Status      string  `json:"status"`
	TotalPln    float64 `json:"totalPln"`
	WidthM      float64 `json:"widthM"`
	LengthM     float64 `json:"lengthM"`
	HeightM     float64 `json:"heightM"`
	AreaM2      float64 `json:"areaM2"`
	VariantHali string  `json:"variantHali"`
}

type SendEmailPayload struct {
	OfferID        string `json:"offerId"`
	To             string `json:"to"`
	Subject        string `json:"subject"`
	Body           string `json:"body"`
	AttachmentPath string `json:"attachmentPath,omitempty"`
}

type EmailLogPayload struct {
	OfferID      string `json:"offerId"`
	UserID       string `json:"userId"`
	To           string `json:"to"`
	Subject      string `json:"subject"`
	Status       string `json:"status"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

type OfferSyncPayload struct {
	OfferID     string          `json:"offerId"`
	OfferNumber string          `json:"offerNumber,omitempty"`
	TempNumber  string          `json:"tempNumber,omitempty"`
	UserID      string          `json:"userId"`
	ClientName  string          `json:"clientName"`
	TotalPln    float64         `json:"totalPln"`
	Data        json.RawMessage `json:"data,omitempty"`
}

type GenericEmail struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// Decode unmarshals the record payload into v. Any decoding problem is
// reported as ErrMalformedPayload so callers can tell it apart from a
// delivery failure.
func (r *Record) Decode(v interface{}) error {
	if len(r.PayloadJson) == 0 {
		return errors.Wrapf(ErrMalformedPayload, "empty payload for %s record %s", r.OperationType, r.Id)
	}

	if err := json.Unmarshal(r.PayloadJson, v); err != nil {
		return errors.Wrapf(ErrMalformedPayload, "%s record %s: %s", r.OperationType, r.Id, err)
	}

	return nil
}
