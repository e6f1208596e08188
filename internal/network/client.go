package network

import (
	"fmt"
	"time"

	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/player"
	"github.com/annel0/blockverse/internal/protocol"
)

// Client игровое соединение со стороны клиента
type Client struct {
	conn    *Conn
	Welcome protocol.Welcome
}

// Connect подключается к серверу и выполняет вход по токену
func Connect(addr, token, name string) (*Client, error) {
	logger := logging.GetNetworkLogger()
	c, err := Dial(addr, logger)
	if err != nil {
		return nil, err
	}
	if err := c.Send(&protocol.Hello{Token: token, Name: name}); err != nil {
		c.Close()
		return nil, err
	}

	c.SetReadDeadline(time.Now().Add(HelloTimeout))
	msg, err := c.Receive()
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("ожидание Welcome: %w", err)
	}
	welcome, ok := msg.(*protocol.Welcome)
	if !ok {
		c.Close()
		return nil, fmt.Errorf("%w: ожидался Welcome, получен %s", protocol.ErrMalformedMessage, msg.Type())
	}
	c.SetReadDeadline(time.Time{})

	logger.Info("🔗 Вход выполнен: игрок %d, seed %d", welcome.PlayerID, welcome.Seed)
	return &Client{conn: c, Welcome: *welcome}, nil
}

// SendInputs отправляет пачку кадров ввода
func (cl *Client) SendInputs(inputs []player.FrameInput) error {
	if len(inputs) == 0 {
		return nil
	}
	return cl.conn.Send(&protocol.InputBatch{Inputs: inputs})
}

// Receive блокируется до следующего сообщения сервера
func (cl *Client) Receive() (protocol.Message, error) {
	return cl.conn.Receive()
}

// Stats счётчики соединения
func (cl *Client) Stats() ConnStats {
	return cl.conn.Stats()
}

// Close закрывает соединение
func (cl *Client) Close() error {
	err := cl.conn.Close()
	cl.conn.Wait()
	return err
}
