// Static mount serving: directory → trailing-slash redirect, default
// document, or a listing when the mount allows one;
// regular file → SetFileContent. Grounded on caddyserver/caddy's
// staticfiles.FileServer.serveFile (trailing-slash canonicalization,
// index-page fallback), adapted from an http.FileSystem abstraction to
// direct os.Stat/os.Open against the mount's safety-checked path.
package kestrel

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/kestrel-http/kestrel/router"
)

func (sess *Session) serveMount(mm *router.MountMatch, req *Request, resp *Response) {
	for k, v := range mm.Mount.DefaultHeaders {
		resp.Header.Set(k, v)
	}

	if mm.IsDir {
		sess.serveMountDir(mm, req, resp)
		return
	}

	if err := resp.SetFileContent(mm.AbsPath, req.Header); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			sess.writeErrorResponse(resp, http.StatusNotFound)
			return
		}
		sess.writeErrorResponse(resp, http.StatusInternalServerError)
	}
}

func (sess *Session) serveMountDir(mm *router.MountMatch, req *Request, resp *Response) {
	if mm.TrailingSlashMissing {
		resp.SetRedirect(req.Target+"/", http.StatusMovedPermanently)
		return
	}

	for _, name := range mm.Mount.IndexNames {
		candidate := path.Join(mm.AbsPath, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			if err := resp.SetFileContent(candidate, req.Header); err != nil {
				sess.writeErrorResponse(resp, http.StatusInternalServerError)
			}
			return
		}
	}

	if !mm.Mount.AllowDirListing {
		sess.writeErrorResponse(resp, http.StatusNotFound)
		return
	}

	entries, err := os.ReadDir(mm.AbsPath)
	if err != nil {
		sess.writeErrorResponse(resp, http.StatusInternalServerError)
		return
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	resp.SetStringContent(renderDirListing(req.Path, entries), "text/html; charset=utf-8", http.StatusOK)
}

// renderDirListing builds a minimal directory index, in the style of
// renderErrorPage: a bare HTML list with no script or styling.
func renderDirListing(reqPath string, entries []os.DirEntry) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "<!DOCTYPE html><html><head><title>Index of %s</title></head><body>", reqPath)
	fmt.Fprintf(&b, "<h1>Index of %s</h1><ul>", reqPath)
	if reqPath != "/" {
		fmt.Fprint(&b, `<li><a href="../">../</a></li>`)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		fmt.Fprintf(&b, `<li><a href="%s">%s</a></li>`, name, name)
	}
	fmt.Fprint(&b, "</ul></body></html>")
	return []byte(b.String())
}
