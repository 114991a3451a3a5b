// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gemini

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/gemini-file-search-tool/pkg/types"
)

const storePageSize = 20

type storeWire struct {
	Name                  string      `json:"name"`
	DisplayName           string      `json:"displayName"`
	CreateTime            time.Time   `json:"createTime"`
	UpdateTime            time.Time   `json:"updateTime"`
	ActiveDocumentsCount  int64String `json:"activeDocumentsCount"`
	PendingDocumentsCount int64String `json:"pendingDocumentsCount"`
	FailedDocumentsCount  int64String `json:"failedDocumentsCount"`
	SizeBytes             int64String `json:"sizeBytes"`
}

func (w storeWire) toStore() types.Store {
	return types.Store{
		Name:             w.Name,
		DisplayName:      w.DisplayName,
		CreateTime:       w.CreateTime,
		UpdateTime:       w.UpdateTime,
		ActiveDocuments:  int64(w.ActiveDocumentsCount),
		PendingDocuments: int64(w.PendingDocumentsCount),
		FailedDocuments:  int64(w.FailedDocumentsCount),
		SizeBytes:        int64(w.SizeBytes),
	}
}

// CreateStore creates a store with the given display name.
func (c *Client) CreateStore(ctx context.Context, displayName string) (types.Store, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPost, c.resourceURL("fileSearchStores", nil),
		map[string]string{"displayName": displayName})
	if err != nil {
		return types.Store{}, err
	}
	var w storeWire
	if err := c.do(ctx, req, &w); err != nil {
		return types.Store{}, fmt.Errorf("creating store %q: %w", displayName, err)
	}
	return w.toStore(), nil
}

// ListStores returns every store, following pagination.
func (c *Client) ListStores(ctx context.Context) ([]types.Store, error) {
	var stores []types.Store
	pageToken := ""
	for {
		q := url.Values{"pageSize": {strconv.Itoa(storePageSize)}}
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}
		req, err := c.newJSONRequest(ctx, http.MethodGet, c.resourceURL("fileSearchStores", q), nil)
		if err != nil {
			return nil, err
		}
		var page struct {
			Stores        []storeWire `json:"fileSearchStores"`
			NextPageToken string      `json:"nextPageToken"`
		}
		if err := c.do(ctx, req, &page); err != nil {
			return nil, fmt.Errorf("listing stores: %w", err)
		}
		for _, w := range page.Stores {
			stores = append(stores, w.toStore())
		}
		if page.NextPageToken == "" {
			return stores, nil
		}
		pageToken = page.NextPageToken
	}
}

// GetStore fetches one store by resource name.
func (c *Client) GetStore(ctx context.Context, name string) (types.Store, error) {
	req, err := c.newJSONRequest(ctx, http.MethodGet, c.resourceURL(name, nil), nil)
	if err != nil {
		return types.Store{}, err
	}
	var w storeWire
	if err := c.do(ctx, req, &w); err != nil {
		return types.Store{}, fmt.Errorf("getting store %s: %w", name, err)
	}
	return w.toStore(), nil
}

// UpdateStore changes a store's display name.
func (c *Client) UpdateStore(ctx context.Context, name, displayName string) (types.Store, error) {
	q := url.Values{"updateMask": {"displayName"}}
	req, err := c.newJSONRequest(ctx, http.MethodPatch, c.resourceURL(name, q),
		map[string]string{"displayName": displayName})
	if err != nil {
		return types.Store{}, err
	}
	var w storeWire
	if err := c.do(ctx, req, &w); err != nil {
		return types.Store{}, fmt.Errorf("updating store %s: %w", name, err)
	}
	return w.toStore(), nil
}

// DeleteStore deletes a store. With force, documents in the store are
// deleted too; without it the service refuses to delete a non-empty store.
func (c *Client) DeleteStore(ctx context.Context, name string, force bool) error {
	var q url.Values
	if force {
		q = url.Values{"force": {"true"}}
	}
	req, err := c.newJSONRequest(ctx, http.MethodDelete, c.resourceURL(name, q), nil)
	if err != nil {
		return err
	}
	if err := c.do(ctx, req, nil); err != nil {
		return fmt.Errorf("deleting store %s: %w", name, err)
	}
	return nil
}

// ErrStoreNotResolved is returned by ResolveStoreName when a reference
// matches no store.
type ErrStoreNotResolved struct {
	Ref string
}

func (e *ErrStoreNotResolved) Error() string {
	return fmt.Sprintf("no store found with display name or base name %q; use list-stores to see available stores", e.Ref)
}

// QualifiedStoreName reports whether ref already names a store resource and
// so resolves without a lookup.
func QualifiedStoreName(ref string) (string, bool) {
	if strings.HasPrefix(ref, types.StorePrefix) || strings.Contains(ref, "/") {
		return ref, true
	}
	return "", false
}

// ResolveStoreName turns a user-supplied store reference into a full
// resource name. Resource names and other values containing "/" are
// returned unchanged. Otherwise the reference is matched against each
// store's display name, then against the id with its trailing "-suffix"
// removed. An unmatched reference containing a hyphen is taken to be a
// store id. If listing stores fails, the reference is treated as an id.
func (c *Client) ResolveStoreName(ctx context.Context, ref string) (string, error) {
	if name, ok := QualifiedStoreName(ref); ok {
		return name, nil
	}

	stores, err := c.ListStores(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		c.log.Warn("could not list stores, treating reference as a store id",
			zap.String("store", ref), zap.Error(err))
		return types.StorePrefix + ref, nil
	}

	if name, ok := MatchStore(stores, ref); ok {
		return name, nil
	}
	if strings.Contains(ref, "-") {
		return types.StorePrefix + ref, nil
	}
	return "", &ErrStoreNotResolved{Ref: ref}
}

// MatchStore finds the store whose display name equals ref, or whose id
// minus its last hyphenated suffix equals ref. Display-name matches win.
func MatchStore(stores []types.Store, ref string) (string, bool) {
	for _, s := range stores {
		if s.DisplayName == ref {
			return s.Name, true
		}
	}
	for _, s := range stores {
		id, ok := strings.CutPrefix(s.Name, types.StorePrefix)
		if !ok {
			continue
		}
		if i := strings.LastIndex(id, "-"); i > 0 && id[:i] == ref {
			return s.Name, true
		}
	}
	return "", false
}
