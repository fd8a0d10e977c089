package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"net/http"
	"strings"
	"sync"
)

const (
	assetCacheControl    = "public, max-age=604800, stale-while-revalidate=86400"
	devAssetCacheControl = "no-cache"
)

// AssetsWithCache serves files from fsys under the URL prefix (e.g. "/assets")
// with content-hash ETags. Hashes are computed once per file; in dev mode
// they are recomputed per request and browsers must revalidate, so edits to
// an on-disk tree show up immediately.
func AssetsWithCache(fsys fs.FS, prefix string, dev bool) http.Handler {
	tags := &etagCache{fsys: fsys, dev: dev}
	files := http.StripPrefix(prefix, http.FileServer(http.FS(fsys)))
	cacheControl := assetCacheControl
	if dev {
		cacheControl = devAssetCacheControl
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Vary", "Accept-Encoding")
		h.Set("Cache-Control", cacheControl)
		name := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, prefix), "/")
		if et, ok := tags.get(name); ok {
			h.Set("ETag", et)
			if etagMatches(r.Header.Get("If-None-Match"), et) {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
		files.ServeHTTP(w, r)
	})
}

type etagCache struct {
	fsys fs.FS
	dev  bool
	tags sync.Map // name -> string
}

func (c *etagCache) get(name string) (string, bool) {
	if name == "" || !fs.ValidPath(name) {
		return "", false
	}
	if !c.dev {
		if v, ok := c.tags.Load(name); ok {
			return v.(string), true
		}
	}
	et, err := fileETag(c.fsys, name)
	if err != nil {
		return "", false
	}
	if !c.dev {
		c.tags.Store(name, et)
	}
	return et, true
}

// etagMatches implements the weak comparison of If-None-Match, which may
// list several tags or "*".
func etagMatches(header, etag string) bool {
	for _, cand := range strings.Split(header, ",") {
		cand = strings.TrimSpace(cand)
		if cand == "*" || strings.TrimPrefix(cand, "W/") == strings.TrimPrefix(etag, "W/") {
			return true
		}
	}
	return false
}

func fileETag(fsys fs.FS, name string) (string, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if st, err := f.Stat(); err != nil || st.IsDir() {
		return "", fs.ErrNotExist
	}
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return `W/"` + hex.EncodeToString(h.Sum(nil)[:16]) + `"`, nil
}
