package storage

import (
	"context"
	"net/url"
	"time"

	"github.com/dharsanguruparan/EventDrop/internal/model"
	"github.com/dharsanguruparan/EventDrop/internal/signing"
)

// MediaPathPrefix is the URL path local capabilities point at.
const MediaPathPrefix = "/media/"

const capabilityScope = "media"

// LocalIssuer issues capability URLs for objects in a LocalBackend. The
// capability does not expire; the media handler re-checks the caller's admin
// authorization on every retrieval.
type LocalIssuer struct {
	signer  *signing.Signer
	baseURL string
}

// NewLocalIssuer creates a LocalIssuer that builds URLs under baseURL.
func NewLocalIssuer(signer *signing.Signer, baseURL string) *LocalIssuer {
	return &LocalIssuer{signer: signer, baseURL: baseURL}
}

// Issue returns a signed capability URL. ttl is ignored.
func (i *LocalIssuer) Issue(_ context.Context, ref model.ObjectRef, _ time.Duration) (Credential, error) {
	if err := CheckKey(ref.Key); err != nil {
		return Credential{}, err
	}
	q := url.Values{}
	q.Set("sig", i.signer.Sign(capabilityScope, ref.EventID(), ref.Name()))
	return Credential{URL: i.baseURL + MediaPathPrefix + ref.Key + "?" + q.Encode()}, nil
}

// IssueBatch issues one capability per ref in input order.
func (i *LocalIssuer) IssueBatch(ctx context.Context, refs []model.ObjectRef, ttl time.Duration) ([]Credential, error) {
	return IssueAll(ctx, i, refs, ttl)
}

// Verify checks a capability signature for eventID/name.
func (i *LocalIssuer) Verify(eventID, name, sig string) bool {
	return i.signer.Validate(sig, capabilityScope, eventID, name)
}
