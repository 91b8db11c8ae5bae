package registry

import (
	"context"
	"github.com/pkg/errors"
	"github.com/siegeai/javro/javro"
)

// AvroFetcher reads the previous Avro schema of one subject.
type AvroFetcher struct {
	Client  *Client
	Subject string
}

var _ javro.AvroFetcher = (*AvroFetcher)(nil)

func NewAvroFetcher(client *Client, subject string) *AvroFetcher {
	return &AvroFetcher{Client: client, Subject: subject}
}

func (f *AvroFetcher) FetchPreviousAvro(ctx context.Context) (string, error) {
	v, err := f.Client.LatestSchema(ctx, f.Subject)
	if isNotFound(err) {
		return "", javro.ErrNoPreviousSchema
	}
	if err != nil {
		return "", errors.Wrapf(err, "fetching latest version of %s", f.Subject)
	}
	return v.Schema, nil
}

// CheckCompatibility tests avro against the latest version. A subject without
// versions accepts anything.
func (f *AvroFetcher) CheckCompatibility(ctx context.Context, avro string) (bool, error) {
	ok, err := f.Client.IsCompatible(ctx, f.Subject, "latest", avro)
	if isNotFound(err) {
		return true, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "checking compatibility with %s", f.Subject)
	}
	return ok, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrSubjectNotFound) || errors.Is(err, ErrVersionNotFound)
}
