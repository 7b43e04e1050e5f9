package a

import "go.uber.org/zap"

const bodyKey = "body"

func log(l *zap.Logger, raw []byte, redacted string) {
	l.Info("request", zap.String("request", redacted))
	l.Info("request", zap.ByteString("payload", raw))       // want `поле "payload" пишет в журнал сырое тело запроса`
	l.Info("request", zap.Any(bodyKey, raw))                // want `поле "body" пишет в журнал сырое тело запроса`
	l.Info("request", zap.String("Request_Body", redacted)) // want `поле "request_body" пишет в журнал сырое тело запроса`
	l.Info("request", zap.String("status", "ok"))
}
