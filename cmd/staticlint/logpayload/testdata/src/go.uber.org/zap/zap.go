package zap

type Field struct {
	Key string
}

func String(key, val string) Field { return Field{Key: key} }

func Any(key string, val interface{}) Field { return Field{Key: key} }

func ByteString(key string, val []byte) Field { return Field{Key: key} }

type Logger struct{}

func (l *Logger) Info(msg string, fields ...Field) {}
