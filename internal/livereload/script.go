package livereload

import (
	"log/slog"
	"net/http"
)

// ScriptPath is where the client script is served.
const ScriptPath = "/livereload.js"

// Script is the browser client. css messages swap matching stylesheet
// links in place; anything else reloads the page.
const Script = `(() => {
  if (window.__ASSETBUILDER_LR__) return;
  window.__ASSETBUILDER_LR__ = true;
  function swapCSS(path) {
    let swapped = false;
    document.querySelectorAll('link[rel="stylesheet"]').forEach((link) => {
      const url = new URL(link.href, location.href);
      if (!url.pathname.endsWith('/' + path) && url.pathname !== '/' + path) return;
      url.searchParams.set('livereload', Date.now().toString());
      link.href = url.toString();
      swapped = true;
    });
    return swapped;
  }
  function connect() {
    const es = new EventSource('/livereload');
    es.onmessage = (e) => {
      let msg;
      try { msg = JSON.parse(e.data); } catch (_) { return; }
      if (msg.type === 'css' && swapCSS(msg.path)) return;
      console.log('[assetbuilder] change detected, reloading');
      location.reload();
    };
    es.onerror = () => { es.close(); setTimeout(connect, 2000); };
  }
  connect();
})();
`

// ScriptHandler serves Script.
func ScriptHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		if _, err := w.Write([]byte(Script)); err != nil {
			slog.Error("failed to write livereload script", "error", err)
		}
	})
}
