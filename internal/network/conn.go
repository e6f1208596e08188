package network

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xtaci/kcp-go/v5"

	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/protocol"
)

// ErrConnClosed соединение закрыто
var ErrConnClosed = errors.New("соединение закрыто")

// ErrSendQueueFull клиент не успевает забирать данные
var ErrSendQueueFull = errors.New("очередь отправки переполнена")

// DefaultSendQueue размер очереди исходящих кадров одного соединения
const DefaultSendQueue = 1024

// ConnStats счётчики соединения
type ConnStats struct {
	FramesSent     uint64
	FramesReceived uint64
	BytesSent      uint64
	BytesReceived  uint64
	LastActivity   time.Time
}

// tuneSession применяет игровые настройки KCP
func tuneSession(s *kcp.UDPSession) {
	s.SetStreamMode(true)
	s.SetWriteDelay(false)
	s.SetNoDelay(1, 20, 2, 1) // Агрессивные настройки для игр
	s.SetWindowSize(512, 512)
	s.SetMtu(1400)
	s.SetACKNoDelay(true)
}

// Conn соединение с кадрированием сообщений протокола.
// Отправка асинхронная через очередь, чтение блокирующее.
type Conn struct {
	raw        net.Conn
	reader     *bufio.Reader
	serializer *protocol.MessageSerializer
	logger     *logging.Logger

	sendQueue chan []byte
	closeOnce sync.Once
	closed    chan struct{}
	wg        sync.WaitGroup

	framesSent     uint64
	framesReceived uint64
	bytesSent      uint64
	bytesReceived  uint64
	lastActivity   atomic.Int64
}

// NewConn оборачивает установленное соединение и запускает цикл отправки
func NewConn(raw net.Conn, logger *logging.Logger) *Conn {
	if s, ok := raw.(*kcp.UDPSession); ok {
		tuneSession(s)
	}
	c := &Conn{
		raw:        raw,
		reader:     bufio.NewReaderSize(raw, 64*1024),
		serializer: protocol.NewMessageSerializer(),
		logger:     logger,
		sendQueue:  make(chan []byte, DefaultSendQueue),
		closed:     make(chan struct{}),
	}
	c.lastActivity.Store(time.Now().UnixNano())
	c.wg.Add(1)
	go c.sendLoop()
	return c
}

// RemoteAddr адрес собеседника
func (c *Conn) RemoteAddr() string {
	return c.raw.RemoteAddr().String()
}

// Send сериализует сообщение и ставит его в очередь отправки
func (c *Conn) Send(msg protocol.Message) error {
	data, err := c.serializer.SerializeMessage(msg)
	if err != nil {
		return err
	}
	return c.SendRaw(data)
}

// SendRaw ставит в очередь уже сериализованное сообщение.
// Переполненная очередь закрывает соединение: потерянный кадр ломает порядок потока.
func (c *Conn) SendRaw(data []byte) error {
	select {
	case <-c.closed:
		return ErrConnClosed
	default:
	}
	select {
	case c.sendQueue <- data:
		return nil
	case <-c.closed:
		return ErrConnClosed
	default:
		c.logger.Warn("⚠️ Очередь отправки %s переполнена, соединение закрывается", c.RemoteAddr())
		c.Close()
		return ErrSendQueueFull
	}
}

// Receive читает и разбирает следующее сообщение
func (c *Conn) Receive() (protocol.Message, error) {
	frame, err := ReadFrame(c.reader)
	if err != nil {
		return nil, err
	}
	atomic.AddUint64(&c.framesReceived, 1)
	atomic.AddUint64(&c.bytesReceived, uint64(len(frame)+4))
	c.lastActivity.Store(time.Now().UnixNano())

	msg, err := c.serializer.DeserializeMessage(frame)
	if err != nil {
		logging.LogProtocolError(c.logger, c.RemoteAddr(), err, frame)
		return nil, err
	}
	return msg, nil
}

// SetReadDeadline ограничивает время ожидания следующего Receive
func (c *Conn) SetReadDeadline(t time.Time) error {
	return c.raw.SetReadDeadline(t)
}

// Stats возвращает счётчики соединения
func (c *Conn) Stats() ConnStats {
	return ConnStats{
		FramesSent:     atomic.LoadUint64(&c.framesSent),
		FramesReceived: atomic.LoadUint64(&c.framesReceived),
		BytesSent:      atomic.LoadUint64(&c.bytesSent),
		BytesReceived:  atomic.LoadUint64(&c.bytesReceived),
		LastActivity:   time.Unix(0, c.lastActivity.Load()),
	}
}

// Close закрывает соединение. Повторные вызовы безопасны.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.raw.Close()
	})
	return err
}

// Wait дожидается завершения цикла отправки
func (c *Conn) Wait() {
	c.wg.Wait()
}

func (c *Conn) sendLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.closed:
			return
		case data := <-c.sendQueue:
			if err := WriteFrame(c.raw, data); err != nil {
				select {
				case <-c.closed:
				default:
					c.logger.Debug("Ошибка отправки %s: %v", c.RemoteAddr(), err)
					c.Close()
				}
				return
			}
			atomic.AddUint64(&c.framesSent, 1)
			atomic.AddUint64(&c.bytesSent, uint64(len(data)+4))
		}
	}
}

// Dial устанавливает KCP-соединение с сервером
func Dial(addr string, logger *logging.Logger) (*Conn, error) {
	s, err := kcp.DialWithOptions(addr, nil, 10, 3)
	if err != nil {
		return nil, fmt.Errorf("подключение к %s: %w", addr, err)
	}
	return NewConn(s, logger), nil
}
