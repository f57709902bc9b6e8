package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server 承载计算 API 的 HTTP 服务
// 调用 Stop 后 Start / Serve 返回 nil
type Server struct {
	http   *http.Server
	logger *zap.Logger
}

// NewServer 写超时需覆盖 POP 工作簿的生成与下载
func NewServer(addr string, handler http.Handler, logger *zap.Logger) *Server {
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger,
	}
}

// Start 监听配置的地址并阻塞
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.http.Addr, err)
	}
	return s.Serve(ln)
}

// Serve 在给定 listener 上提供服务
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("Dilutio API listening", zap.String("addr", ln.Addr().String()))
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop 等待进行中的请求结束，超过 ctx 期限则强制返回
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Dilutio API draining connections")
	return s.http.Shutdown(ctx)
}
