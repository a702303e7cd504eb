// Package log add logging utilities.
package log

import (
	"strings"
	"time"

	"tftp/internal/pkg/wire"

	"github.com/sirupsen/logrus"
)

// SetLogger sets the default logger's level.
func SetLogger(level string) {
	logrus.SetLevel(logrus.ErrorLevel)
	customFormatter := new(logrus.TextFormatter)
	customFormatter.TimestampFormat = time.RFC3339
	logrus.SetFormatter(customFormatter)
	customFormatter.FullTimestamp = true
	switch strings.ToLower(level) {
	case "trace":
		logrus.SetLevel(logrus.TraceLevel)
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.ErrorLevel)
	}
}

// PacketToFields renders a decoded packet as structured log fields.
func PacketToFields(pkt wire.Packet) logrus.Fields {
	switch p := pkt.(type) {
	case wire.ReadRequest:
		return logrus.Fields{
			"op":   p.Op().String(),
			"file": p.Filename,
			"mode": string(p.Mode),
		}
	case wire.WriteRequest:
		return logrus.Fields{
			"op":   p.Op().String(),
			"file": p.Filename,
			"mode": string(p.Mode),
		}
	case wire.Data:
		return logrus.Fields{
			"op":    p.Op().String(),
			"block": p.Block,
			"len":   len(p.Payload),
		}
	case wire.Ack:
		return logrus.Fields{
			"op":    p.Op().String(),
			"block": p.Block,
		}
	case wire.Error:
		return logrus.Fields{
			"op":   p.Op().String(),
			"code": p.Code.String(),
			"msg":  p.Message,
		}
	}
	return logrus.Fields{}
}
