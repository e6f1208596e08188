package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/xtaci/kcp-go/v5"

	"github.com/annel0/blockverse/internal/auth"
	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/player"
	"github.com/annel0/blockverse/internal/protocol"
	"github.com/annel0/blockverse/internal/world"
)

// HelloTimeout сколько ждать Hello после подключения
const HelloTimeout = 10 * time.Second

// IdleTimeout соединение без входящих данных считается потерянным
const IdleTimeout = 30 * time.Second

// ErrDuplicateSession игрок уже подключен с другого соединения
var ErrDuplicateSession = errors.New("игрок уже подключен")

// Simulation то, что сетевой сервер требует от игровой логики
type Simulation interface {
	Join(ctx context.Context, id uint64, name string) (player.Snapshot, error)
	Leave(ctx context.Context, id uint64) error
	Enqueue(id uint64, inputs ...player.FrameInput) (int, error)
	Seed() int64
	TickRate() int
}

// TokenValidator проверка токена входа
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// Server принимает KCP-клиентов, проводит вход по токену и передаёт
// кадры ввода в симуляцию. Реализует рассылку результатов тика.
type Server struct {
	addr       string
	sim        Simulation
	tokens     TokenValidator
	serializer *protocol.MessageSerializer
	logger     *logging.Logger

	listener *kcp.Listener
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	clientsMu sync.RWMutex
	clients   map[uint64]*Conn
	// joining соединения, прошедшие проверку токена, но ещё без Welcome
	joining map[uint64]*pendingJoin
}

// pendingJoin копит чанки, выданные игроку до отправки Welcome
type pendingJoin struct {
	conn   *Conn
	chunks []*world.Chunk
}

// NewServer создаёт сервер. Прослушивание начинается в Start.
func NewServer(addr string, sim Simulation, tokens TokenValidator) *Server {
	return &Server{
		addr:       addr,
		sim:        sim,
		tokens:     tokens,
		serializer: protocol.NewMessageSerializer(),
		logger:     logging.GetNetworkLogger(),
		clients:    make(map[uint64]*Conn),
		joining:    make(map[uint64]*pendingJoin),
	}
}

// Start открывает KCP-порт и запускает приём соединений
func (s *Server) Start() error {
	listener, err := kcp.ListenWithOptions(s.addr, nil, 10, 3)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = listener
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.wg.Add(1)
	go s.acceptLoop()

	s.logger.Info("🚀 KCP сервер запущен на %s", listener.Addr())
	return nil
}

// Addr фактический адрес прослушивания
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop закрывает порт и все соединения
func (s *Server) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.listener != nil {
		s.listener.Close()
	}

	s.clientsMu.Lock()
	for _, c := range s.clients {
		c.Close()
	}
	for _, pj := range s.joining {
		pj.conn.Close()
	}
	s.clientsMu.Unlock()

	s.wg.Wait()
	s.logger.Info("🛑 KCP сервер остановлен")
}

// ClientCount количество вошедших игроков
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.AcceptKCP()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
			}
			s.logger.Error("Ошибка приёма соединения: %v", err)
			continue
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(raw *kcp.UDPSession) {
	defer s.wg.Done()

	c := NewConn(raw, s.logger)
	defer func() {
		c.Close()
		c.Wait()
	}()

	id, err := s.handshake(c)
	if err != nil {
		s.logger.Warn("🚫 Отказ во входе %s: %v", c.RemoteAddr(), err)
		return
	}
	defer s.disconnect(id, c)

	s.readLoop(id, c)
}

// handshake ждёт Hello, проверяет токен и регистрирует игрока в симуляции.
// Соединение попадает в рассылку только после того, как Welcome стоит в очереди.
// При ошибке после Join игрок удаляется из симуляции.
func (s *Server) handshake(c *Conn) (uint64, error) {
	c.SetReadDeadline(time.Now().Add(HelloTimeout))
	msg, err := c.Receive()
	if err != nil {
		return 0, fmt.Errorf("ожидание Hello: %w", err)
	}
	hello, ok := msg.(*protocol.Hello)
	if !ok {
		return 0, fmt.Errorf("%w: первым ожидался Hello, получен %s", protocol.ErrMalformedMessage, msg.Type())
	}
	claims, err := s.tokens.Validate(hello.Token)
	if err != nil {
		return 0, err
	}
	id := claims.PlayerID

	s.clientsMu.Lock()
	_, connected := s.clients[id]
	_, pending := s.joining[id]
	if connected || pending {
		s.clientsMu.Unlock()
		return 0, fmt.Errorf("%w: %d", ErrDuplicateSession, id)
	}
	s.joining[id] = &pendingJoin{conn: c}
	s.clientsMu.Unlock()

	name := claims.Name
	if name == "" {
		name = hello.Name
	}
	snap, err := s.sim.Join(s.ctx, id, name)
	if err != nil {
		s.clientsMu.Lock()
		delete(s.joining, id)
		s.clientsMu.Unlock()
		return 0, err
	}

	err = c.Send(&protocol.Welcome{
		PlayerID: id,
		Seed:     s.sim.Seed(),
		Spawn:    snap.Position,
		TickRate: uint32(s.sim.TickRate()),
	})

	s.clientsMu.Lock()
	pj := s.joining[id]
	delete(s.joining, id)
	if err == nil {
		s.clients[id] = c
		for _, chunk := range pj.chunks {
			if err = c.Send(&protocol.ChunkData{Chunk: chunk}); err != nil {
				delete(s.clients, id)
				break
			}
		}
	}
	s.clientsMu.Unlock()

	if err != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if lerr := s.sim.Leave(ctx, id); lerr != nil {
			s.logger.Debug("Leave %d: %v", id, lerr)
		}
		return 0, fmt.Errorf("отправка Welcome: %w", err)
	}
	s.logger.Info("🔗 Игрок %s (%d) вошёл с %s", name, id, c.RemoteAddr())
	return id, nil
}

func (s *Server) readLoop(id uint64, c *Conn) {
	for {
		c.SetReadDeadline(time.Now().Add(IdleTimeout))
		msg, err := c.Receive()
		if err != nil {
			if errors.Is(err, protocol.ErrMalformedMessage) {
				s.logger.Warn("⚠️ Некорректное сообщение от игрока %d, отключение", id)
			}
			return
		}

		switch m := msg.(type) {
		case *protocol.InputBatch:
			if _, err := s.sim.Enqueue(id, m.Inputs...); err != nil {
				s.logger.Warn("⚠️ Ввод игрока %d отклонён: %v", id, err)
				return
			}
		default:
			s.logger.Warn("⚠️ Неожиданное сообщение %s от игрока %d", msg.Type(), id)
			return
		}
	}
}

func (s *Server) disconnect(id uint64, c *Conn) {
	s.clientsMu.Lock()
	if s.clients[id] == c {
		delete(s.clients, id)
	}
	s.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.sim.Leave(ctx, id); err != nil {
		s.logger.Debug("Leave %d: %v", id, err)
	}
	s.logger.Info("👋 Игрок %d отключен", id)
}

func (s *Server) broadcast(msg protocol.Message) {
	data, err := s.serializer.SerializeMessage(msg)
	if err != nil {
		s.logger.Error("❌ Ошибка сериализации %s: %v", msg.Type(), err)
		return
	}
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for _, c := range s.clients {
		_ = c.SendRaw(data)
	}
}

// BroadcastUpdate рассылает снимок игрока всем клиентам
func (s *Server) BroadcastUpdate(snap player.Snapshot) {
	s.broadcast(&protocol.PlayerUpdate{Snapshot: snap})
}

// BroadcastLeft сообщает всем об отключении игрока
func (s *Server) BroadcastLeft(playerID uint64) {
	s.broadcast(&protocol.PlayerLeft{PlayerID: playerID})
}

// SendChunk отправляет чанк одному игроку.
// Игроку, ещё не получившему Welcome, чанк уйдёт сразу после него.
func (s *Server) SendChunk(playerID uint64, c *world.Chunk) {
	s.clientsMu.Lock()
	conn, ok := s.clients[playerID]
	if !ok {
		if pj, joining := s.joining[playerID]; joining {
			pj.chunks = append(pj.chunks, c)
		}
		s.clientsMu.Unlock()
		return
	}
	s.clientsMu.Unlock()

	if err := conn.Send(&protocol.ChunkData{Chunk: c}); err != nil && !errors.Is(err, ErrConnClosed) {
		s.logger.Debug("Чанк %v игроку %d не отправлен: %v", c.Coords, playerID, err)
	}
}
