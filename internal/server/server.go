// Package server 提供报价查询的 HTTP 接口
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lucksec/gpuhunt/internal/domain"
	"github.com/lucksec/gpuhunt/internal/logger"
	"github.com/lucksec/gpuhunt/internal/service"
)

// Server 报价查询 HTTP 服务
type Server struct {
	httpServer *http.Server
	svc        service.OfferService
	log        logger.Logger
}

// NewServer 创建 HTTP 服务
func NewServer(svc service.OfferService, addr string, log logger.Logger) *Server {
	if log == nil {
		log = logger.GetLogger()
	}
	s := &Server{svc: svc, log: log}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/providers", s.handleProviders)
	r.Get("/api/offers", s.handleOffers)
	r.Get("/api/offers/summary", s.handleSummary)
	r.Get("/api/catalog", s.handleCatalog)
	r.Post("/api/catalog/reload", s.handleReload)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler 返回路由（测试时直接使用）
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start 开始监听，阻塞直到服务停止
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.log.Info("HTTP 服务已启动: http://%s", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// Shutdown 优雅停止服务
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("%s %s %d %v", r.Method, r.URL.RequestURI(), ww.Status(), time.Since(start))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Providers())
}

func (s *Server) handleOffers(w http.ResponseWriter, r *http.Request) {
	f, limit, err := parseFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, err)
		return
	}
	result, err := s.svc.Query(r.Context(), f)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if limit > 0 && len(result.Offers) > limit {
		result.Offers = result.Offers[:limit]
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	f, _, err := parseFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, err)
		return
	}
	summary, err := s.svc.Summarize(r.Context(), f)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Status())
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	status, err := s.svc.Reload(r.Context())
	if err != nil {
		s.log.Warn("手动加载快照失败: %v", err)
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error(), "catalog": status})
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// writeError 参数校验错误返回 400，其余返回 500
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, domain.ErrValidation) {
		status = http.StatusBadRequest
	} else {
		s.log.Error("请求处理失败: %v", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
