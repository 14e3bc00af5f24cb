package explorer

import (
	"html/template"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// widgetFuncs exposes the formatting helpers to the widget templates.
var widgetFuncs = template.FuncMap{
	"btc":        FormatBTC,
	"sats":       FormatSats,
	"feerate":    FormatFeeRate,
	"comma":      func(v uint64) string { return FormatInt(int64(v)) },
	"commai":     FormatInt,
	"bytes":      FormatBytes,
	"hashrate":   FormatHashrate,
	"difficulty": FormatDifficulty,
	"duration":   FormatDuration,
	"ago":        TimeAgo,
	"utc":        FormatTime,
	"short":      ShortHash,
	"pct":        func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) + "%" },
	"deref": func(p *float64) float64 {
		if p == nil {
			return 0
		}
		return *p
	},
}

var widgetTmpl = template.Must(template.New("widgets").Funcs(widgetFuncs).Parse(widgetTemplates))

// RegisterWidgetRoutes mounts the server-rendered HTML fragments used
// by the explorer page.
func RegisterWidgetRoutes(r chi.Router, svc *Service) {
	r.Route("/widgets", func(r chi.Router) {
		r.Get("/mempool", widgetMempool(svc))
		r.Get("/network", widgetNetwork(svc))
		r.Get("/block/{hash}", widgetBlock(svc))
		r.Get("/height/{height}", widgetHeight(svc))
		r.Get("/tx/{txid}", widgetTx(svc))
		r.Get("/addr/{address}", widgetAddr(svc))
	})
}

func widgetMempool(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.Mempool(r.Context())
		if err != nil {
			renderWidgetError(w, "mempool unavailable", err)
			return
		}
		renderWidget(w, "mempool", view)
	}
}

func widgetNetwork(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.Network(r.Context())
		if err != nil {
			renderWidgetError(w, "network stats unavailable", err)
			return
		}
		renderWidget(w, "network", view)
	}
}

func widgetBlock(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.BlockByHash(r.Context(), chi.URLParam(r, "hash"),
			queryInt(r, "offset", 0), queryInt(r, "limit", -1))
		if err != nil {
			renderWidgetError(w, "block not found", err)
			return
		}
		renderWidget(w, "block", view)
	}
}

// widgetHeight resolves a height and renders the same block fragment.
func widgetHeight(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		height, err := strconv.ParseUint(chi.URLParam(r, "height"), 10, 64)
		if err != nil {
			renderWidgetError(w, "invalid height", err)
			return
		}
		hv, err := svc.BlockHashByHeight(r.Context(), height)
		if err != nil {
			renderWidgetError(w, "block not found", err)
			return
		}
		view, err := svc.BlockByHash(r.Context(), hv.Hash,
			queryInt(r, "offset", 0), queryInt(r, "limit", -1))
		if err != nil {
			renderWidgetError(w, "block not found", err)
			return
		}
		renderWidget(w, "block", view)
	}
}

// txWidgetData carries the tx view plus the shared last-viewed-block
// pointer for the back link.
type txWidgetData struct {
	*TxView
	BackBlock string
}

func widgetTx(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.TxByID(r.Context(), chi.URLParam(r, "txid"), queryInt(r, "resolve", -1))
		if err != nil {
			renderWidgetError(w, "transaction not found", err)
			return
		}
		renderWidget(w, "tx", txWidgetData{TxView: view, BackBlock: svc.LastViewedBlock()})
	}
}

func widgetAddr(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		address := chi.URLParam(r, "address")
		details := r.URL.Query().Get("details") == "1"

		view, err := svc.AddressBalance(r.Context(), address, details)
		if err != nil {
			renderWidgetError(w, "address lookup failed", err)
			return
		}

		hist, err := svc.AddressHistory(r.Context(), address,
			queryInt(r, "offset", 0), queryInt(r, "limit", -1))
		if err != nil {
			renderWidgetError(w, "address lookup failed", err)
			return
		}

		renderWidget(w, "addr", struct {
			*AddrView
			History *AddrHistoryView
		}{view, hist})
	}
}

func renderWidget(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := widgetTmpl.ExecuteTemplate(w, name, data); err != nil {
		log.Printf("explorer: rendering %s widget: %v", name, err)
	}
}

// renderWidgetError degrades a backend failure into an inline message
// instead of an error page. The detail goes to the log only.
func renderWidgetError(w http.ResponseWriter, msg string, err error) {
	log.Printf("explorer: %s: %v", msg, err)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	widgetTmpl.ExecuteTemplate(w, "error", msg)
}
