package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/annel0/blockverse/internal/api"
	"github.com/annel0/blockverse/internal/client"
	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/network"
	"github.com/annel0/blockverse/internal/player"
	"github.com/annel0/blockverse/internal/protocol"
	"github.com/annel0/blockverse/internal/world"
)

const (
	frameInterval = time.Second / 60
	sendInterval  = time.Second / 20
	reportEvery   = 5 * time.Second
)

func main() {
	gameAddr := flag.String("addr", "127.0.0.1:7777", "KCP адрес игрового сервера")
	apiURL := flag.String("api", "http://127.0.0.1:8088", "адрес REST API для получения токена")
	token := flag.String("token", "", "готовый токен входа (иначе запрашивается через API)")
	name := flag.String("name", "bot", "имя игрока")
	duration := flag.Duration("duration", time.Minute, "сколько играть, 0 - бесконечно")
	seed := flag.Int64("seed", time.Now().UnixNano(), "сид поведения бота")
	flag.Parse()

	logger := logging.GetComponentLogger("bot")

	if *token == "" {
		t, err := requestToken(*apiURL, *name)
		if err != nil {
			log.Fatalf("❌ Не удалось получить токен: %v", err)
		}
		*token = t
	}

	cl, err := network.Connect(*gameAddr, *token, *name)
	if err != nil {
		log.Fatalf("❌ Не удалось подключиться: %v", err)
	}
	defer cl.Close()

	b := newBot(cl, cl.Welcome, rand.New(rand.NewSource(*seed)))
	logger.Info("🤖 Бот %s (%d) в игре, спавн %v", *name, cl.Welcome.PlayerID, cl.Welcome.Spawn)

	var deadline <-chan time.Time
	if *duration > 0 {
		deadline = time.After(*duration)
	}
	if err := b.run(deadline, logger); err != nil {
		logger.Error("❌ %v", err)
	}
	logger.Info("👋 Бот завершил работу: коррекций %d, отправлено %d байт",
		b.predictor.Corrections(), cl.Stats().BytesSent)
}

// requestToken получает токен через POST /api/session
func requestToken(apiURL, name string) (string, error) {
	body, _ := json.Marshal(api.SessionRequest{Name: name})
	httpClient := &http.Client{Timeout: 5 * time.Second}
	resp, err := httpClient.Post(apiURL+"/api/session", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out struct {
		Success bool                `json:"success"`
		Message string              `json:"message"`
		Data    api.SessionResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("разбор ответа: %w", err)
	}
	if !out.Success {
		return "", fmt.Errorf("сервер отказал: %s", out.Message)
	}
	return out.Data.Token, nil
}

// gameConn сторона соединения, которой пользуется бот
type gameConn interface {
	SendInputs(inputs []player.FrameInput) error
	Receive() (protocol.Message, error)
}

type bot struct {
	conn      gameConn
	world     *world.ClientMap
	sync      *client.Synchronizer
	predictor *client.Predictor
	rng       *rand.Rand

	yaw     float64
	actions player.ActionSet
}

func newBot(conn gameConn, welcome protocol.Welcome, rng *rand.Rand) *bot {
	p := player.New(welcome.PlayerID, "", welcome.Spawn)
	cm := world.NewClientMap()
	sync := client.NewSynchronizer(client.SystemClock)
	return &bot{
		conn:      conn,
		world:     cm,
		sync:      sync,
		predictor: client.NewPredictor(p, cm, sync),
		rng:       rng,
	}
}

// receive читает сообщения сервера в отдельной горутине до закрытия done
func (b *bot) receive(done <-chan struct{}, out chan<- protocol.Message, errc chan<- error) {
	for {
		msg, err := b.conn.Receive()
		if err != nil {
			errc <- err
			return
		}
		select {
		case out <- msg:
		case <-done:
			return
		}
	}
}

func (b *bot) handle(msg protocol.Message) {
	switch m := msg.(type) {
	case *protocol.ChunkData:
		b.world.ApplyChunk(m.Chunk)
		// рендера нет, меш считается построенным сразу
		now := b.sync.Time().CurrTimeMs()
		for _, coord := range b.world.DrainUpdates() {
			b.world.MarkMeshed(coord, now)
		}
	case *protocol.PlayerUpdate:
		b.predictor.ApplyServerUpdate(m.Snapshot)
	case *protocol.PlayerLeft:
		b.predictor.RemoveOther(m.PlayerID)
	}
}

// think меняет намерения бота раз в несколько кадров
func (b *bot) think() {
	if b.rng.Intn(60) != 0 {
		return
	}
	b.yaw += (b.rng.Float64() - 0.5) * math.Pi / 2
	b.actions = player.NewActionSet(player.MoveForward)
	if b.rng.Intn(4) == 0 {
		b.actions = b.actions.With(player.JumpOrFlyUp)
	}
}

func (b *bot) camera() mgl64.Quat {
	return mgl64.QuatRotate(b.yaw, mgl64.Vec3{0, 1, 0})
}

func (b *bot) run(deadline <-chan time.Time, logger *logging.Logger) error {
	msgs := make(chan protocol.Message, 256)
	errc := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go b.receive(done, msgs, errc)

	frames := time.NewTicker(frameInterval)
	defer frames.Stop()
	sends := time.NewTicker(sendInterval)
	defer sends.Stop()
	reports := time.NewTicker(reportEvery)
	defer reports.Stop()

	for {
		select {
		case <-deadline:
			return nil
		case err := <-errc:
			return fmt.Errorf("соединение потеряно: %w", err)
		case msg := <-msgs:
			b.handle(msg)
		case <-frames.C:
			b.sync.Step()
			b.think()
			b.predictor.Frame(b.actions, b.camera())
		case <-sends.C:
			if err := b.conn.SendInputs(b.sync.Flush()); err != nil {
				return err
			}
		case <-reports.C:
			p := b.predictor.Player
			logger.Info("📍 Позиция %.2f %.2f %.2f, чанков %d, готов %v, игроков рядом %d",
				p.Position.X(), p.Position.Y(), p.Position.Z(),
				b.world.ChunkCount(), world.IsReady(b.world, p.Position), len(b.predictor.Others))
		}
	}
}
