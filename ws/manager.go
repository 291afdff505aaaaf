package ws

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"

	"github.com/akinalp/memesync/pkg"
	"github.com/akinalp/memesync/pkg/ratelimit"
)

// Bağlantı sabitleri
const (
	// writeWait: Bir frame'i yazmak için maksimum bekleme süresi.
	writeWait = 10 * time.Second

	// maxMessageSize: Sunucudan kabul edilen maksimum frame boyutu (byte).
	// Yorum event'leri metin taşıdığı için sunucu tarafındaki 4KB limitinden büyük.
	maxMessageSize = 64 * 1024

	// sendBufferSize: Giden mesaj kuyruğunun boyutu. Doluysa Send false döner.
	sendBufferSize = 256

	// policyViolationDelay: sunucu 1008 (rate limit) ile kapatırsa ilk deneme öncesi beklenen minimum süre.
	policyViolationDelay = 10 * time.Second
)

// State, bağlantı durumu.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// MarshalText, State'i JSON'da string olarak yazar.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// StateChange, listener'lara her geçişte bir kez gönderilen bildirim.
//
// Degraded: reconnect sınırı aşıldı, realtime özellikler devre dışı.
// Explicit: geçiş Disconnect (logout) sonucu; Store bu durumda yeniden abone olmaz.
type StateChange struct {
	From     State
	To       State
	Degraded bool
	Explicit bool
	Attempt  int
}

// TokenSource, bağlantı için bearer token sağlar (session context).
type TokenSource interface {
	Token() string
}

// Options, Manager ayarları.
type Options struct {
	URL string

	ReconnectAttempts int
	ReconnectDelay    time.Duration
	ReconnectBackoff  float64
	ReconnectMaxDelay time.Duration

	PingInterval time.Duration

	LikeDedupeWindow time.Duration
	JoinDedupeWindow time.Duration

	// MaxMessagesPerWindow, tip başına giden mesaj sınırı; 0 = sınırsız.
	MaxMessagesPerWindow int
	RateWindow           time.Duration
	RateCooldown         time.Duration

	// Dialer, nil ise websocket.DefaultDialer.
	Dialer *websocket.Dialer
}

var errAlreadyActive = errors.New("connection already active")

// Manager, duplex bağlantının yaşam döngüsünü yönetir:
// connect, kimlik doğrulama, kopma tespiti, sınırlı reconnect ve
// post aboneliklerinin yeniden kurulması.
//
// State machine: disconnected → connecting → connected, hata/kapanmada
// connected → disconnected. Beklenmedik kapanmada otomatik reconnect döngüsü başlar;
// Disconnect (logout) terminal durumdur, tekrar Connect çağrılana kadar.
//
// Her bağlantı bir epoch'tur. İki goroutine çalışır:
//   - readPump: frame okur, decode eder, Dispatcher'a senkron teslim eder
//   - writePump: send kuyruğunu ve ping ticker'ını yazar
//
// Eski bir epoch'un goroutine'lerinden gelen kopma bildirimleri epoch karşılaştırması ile yok sayılır.
type Manager struct {
	opts       Options
	tokens     TokenSource
	dispatcher *Dispatcher
	dialer     *websocket.Dialer
	dedupe     *ratelimit.SendDeduper
	limiter    *ratelimit.MessageRateLimiter

	mu            sync.Mutex
	state         State
	degraded      bool
	conn          *websocket.Conn
	send          chan []byte
	epoch         uint64
	generation    uint64 // Disconnect her çağrıldığında artar, uçuştaki dial'ı geçersiz kılar
	subscriptions map[string]struct{}
	stopRetry     context.CancelFunc
	closed        bool

	listenMu  sync.Mutex
	listeners map[uint64]func(StateChange)
	nextLis   uint64

	wg sync.WaitGroup
}

// NewManager, constructor. Bağlantı açmaz; Connect çağrılmalıdır.
func NewManager(opts Options, tokens TokenSource, dispatcher *Dispatcher) *Manager {
	if opts.ReconnectBackoff < 1 {
		opts.ReconnectBackoff = 1
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &Manager{
		opts:          opts,
		tokens:        tokens,
		dispatcher:    dispatcher,
		dialer:        dialer,
		dedupe:        ratelimit.NewSendDeduper(),
		limiter:       ratelimit.NewMessageRateLimiter(opts.MaxMessagesPerWindow, opts.RateWindow, opts.RateCooldown),
		subscriptions: make(map[string]struct{}),
		listeners:     make(map[uint64]func(StateChange)),
	}
}

// State, mevcut bağlantı durumu.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

// Degraded, reconnect sınırı aşıldıysa true. Başarılı bir Connect sıfırlar.
func (m *Manager) Degraded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.degraded
}

// OnStateChange, her durum geçişinde fn'i çağırır. fn manager lock'u tutulmadan,
// geçişi yapan goroutine'de senkron çağrılır; fn içinden Manager metodları çağrılabilir.
func (m *Manager) OnStateChange(fn func(StateChange)) (unsubscribe func()) {
	m.listenMu.Lock()
	m.nextLis++
	id := m.nextLis
	m.listeners[id] = fn
	m.listenMu.Unlock()

	return func() {
		m.listenMu.Lock()
		delete(m.listeners, id)
		m.listenMu.Unlock()
	}
}

// Connect, bağlantıyı açar. Zaten connected veya connecting ise no-op.
//
// Başarılı olursa state connected olur ve kayıtlı tüm abonelikler yeniden gönderilir.
// Başarısız olursa error döner ve otomatik reconnect döngüsü başlar.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return pkg.ErrNotConnected
	}
	if m.state != StateDisconnected {
		m.mu.Unlock()
		return nil
	}
	m.cancelRetryLocked()
	m.mu.Unlock()

	err := m.connect(ctx, 0)
	switch {
	case err == nil, errors.Is(err, errAlreadyActive):
		return nil
	case errors.Is(err, pkg.ErrNotAuthenticated), errors.Is(err, pkg.ErrNotConnected):
		return err
	}

	m.mu.Lock()
	m.startRetryLocked(0)
	m.mu.Unlock()
	return err
}

// Disconnect, tüm abonelikleri bırakır (her biri için best-effort LEAVE_POST),
// bağlantıyı kapatır ve disconnected'a geçer. Reconnect döngüsü durdurulur.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.cancelRetryLocked()
	m.generation++
	prev := m.state

	if prev == StateConnected && m.send != nil {
		for _, postID := range m.sortedSubscriptionsLocked() {
			m.enqueueLocked(LeavePostMessage{PostID: postID}, false)
		}
		// writePump kuyrukta kalanları yazar, sonra close frame gönderip bağlantıyı kapatır.
		close(m.send)
	}
	m.send = nil
	m.conn = nil
	m.epoch++
	m.subscriptions = make(map[string]struct{})
	m.state = StateDisconnected
	m.degraded = false
	m.mu.Unlock()

	m.dedupe.Reset()
	if prev != StateDisconnected {
		glog.Infof("[ws] disconnected (explicit)")
		m.emit(StateChange{From: prev, To: StateDisconnected, Explicit: true})
	}
}

// Close, Disconnect yapar ve pump goroutine'lerinin bitmesini bekler. Terminal'dir.
func (m *Manager) Close() {
	m.Disconnect()

	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.wg.Wait()
	m.limiter.Close()
}

// Send, mesajı giden kuyruğa koyar. Connected değilse veya kuyruk doluysa false döner;
// kuyruğa alma, retry veya bırakma kararı caller'a aittir.
//
// Aynı içerikli LIKE/SAVE mesajı LikeDedupeWindow, JOIN_POST JoinDedupeWindow içinde
// tekrar gönderilmez; bastırılan kopya gönderilmiş sayılır (true).
func (m *Manager) Send(msg Message) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.enqueueLocked(msg, true)
}

// Subscribe, postID'yi abonelik registry'sine ekler ve bağlıysa JOIN_POST gönderir.
// Bağlı değilse false döner; abonelik bir sonraki connect'te gönderilir.
func (m *Manager) Subscribe(postID string) bool {
	if postID == "" {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.subscriptions[postID] = struct{}{}
	if m.state != StateConnected {
		return false
	}
	return m.enqueueLocked(JoinPostMessage{PostID: postID}, true)
}

// Unsubscribe, postID'yi registry'den çıkarır ve bağlıysa LEAVE_POST gönderir.
func (m *Manager) Unsubscribe(postID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.subscriptions[postID]; !ok {
		return false
	}
	delete(m.subscriptions, postID)
	if m.state != StateConnected {
		return false
	}
	return m.enqueueLocked(LeavePostMessage{PostID: postID}, false)
}

// Subscriptions, registry'deki post id'leri sıralı döner.
func (m *Manager) Subscriptions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.sortedSubscriptionsLocked()
}

// connect, tek bir bağlantı denemesi. attempt sadece loglama ve StateChange için.
func (m *Manager) connect(ctx context.Context, attempt int) error {
	m.mu.Lock()
	if m.state != StateDisconnected {
		m.mu.Unlock()
		return errAlreadyActive
	}
	token := ""
	if m.tokens != nil {
		token = m.tokens.Token()
	}
	if token == "" {
		m.mu.Unlock()
		return pkg.ErrNotAuthenticated
	}
	m.state = StateConnecting
	gen := m.generation
	m.mu.Unlock()

	m.emit(StateChange{From: StateDisconnected, To: StateConnecting, Attempt: attempt})

	target, err := m.dialURL(token)
	if err != nil {
		m.failConnecting(gen, attempt)
		return err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, _, err := m.dialer.DialContext(ctx, target, header)

	m.mu.Lock()
	if m.generation != gen || m.closed {
		// Dial sürerken Disconnect çağrıldı.
		m.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return pkg.ErrNotConnected
	}
	if err != nil {
		m.mu.Unlock()
		m.failConnecting(gen, attempt)
		return fmt.Errorf("%w: dial %s: %v", pkg.ErrNetwork, m.opts.URL, err)
	}

	m.epoch++
	epoch := m.epoch
	send := make(chan []byte, sendBufferSize)
	m.conn = conn
	m.send = send
	m.state = StateConnected
	m.degraded = false
	m.limiter.Reset()
	// Dedup penceresi epoch'a bağlıdır; önceki bağlantıda gönderilmiş JOIN replay'i bastırmamalı.
	m.dedupe.Reset()

	m.wg.Add(2)
	go m.readPump(epoch, conn)
	go m.writePump(conn, send)

	// Abonelik replay'i: view katmanı kopmayı fark etmeden canlı yorumlar devam eder.
	subs := m.sortedSubscriptionsLocked()
	for _, postID := range subs {
		m.enqueueLocked(JoinPostMessage{PostID: postID}, true)
	}
	m.mu.Unlock()

	glog.Infof("[ws] connected (attempt=%d, replayed %d subscriptions)", attempt, len(subs))
	m.emit(StateChange{From: StateConnecting, To: StateConnected, Attempt: attempt})
	return nil
}

// failConnecting, başarısız dial sonrası connecting → disconnected geçişi.
func (m *Manager) failConnecting(gen uint64, attempt int) {
	m.mu.Lock()
	if m.generation != gen || m.state != StateConnecting {
		m.mu.Unlock()
		return
	}
	m.state = StateDisconnected
	m.mu.Unlock()

	m.emit(StateChange{From: StateConnecting, To: StateDisconnected, Attempt: attempt})
}

func (m *Manager) dialURL(token string) (string, error) {
	u, err := url.Parse(m.opts.URL)
	if err != nil {
		return "", fmt.Errorf("%w: invalid websocket url: %v", pkg.ErrBadRequest, err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// enqueueLocked, mesajı kuyruğa koyar. Caller m.mu'yu tutmalı.
func (m *Manager) enqueueLocked(msg Message, dedupe bool) bool {
	if m.state != StateConnected || m.send == nil {
		return false
	}

	data, err := EncodeMessage(msg)
	if err != nil {
		glog.Errorf("[ws] failed to encode %s: %v", msg.Type(), err)
		return false
	}

	key, fingerprint := dedupeKey(msg), string(data)
	if _, leaving := msg.(LeavePostMessage); leaving {
		m.dedupe.Forget(key)
	}
	if dedupe && !m.dedupe.Allow(key, fingerprint, m.dedupeWindow(msg.Type())) {
		glog.V(2).Infof("[ws] suppressed duplicate %s", msg.Type())
		return true
	}

	if !m.limiter.Allow(string(msg.Type())) {
		m.dedupe.Forget(key)
		glog.Warningf("[ws] outbound rate limit hit for %s, dropping", msg.Type())
		return false
	}

	select {
	case m.send <- data:
		return true
	default:
		m.dedupe.Forget(key)
		glog.Warningf("[ws] send buffer full, dropping %s", msg.Type())
		return false
	}
}

// dedupeKey, mesajın mantıksal hedefi. Aynı hedefe giden ardışık aynı içerik bastırılır.
func dedupeKey(msg Message) string {
	switch m := msg.(type) {
	case LikeMessage:
		return "LIKE:" + m.MemeID
	case SaveMessage:
		return "SAVE:" + m.MemeID
	case JoinPostMessage:
		return "POST:" + m.PostID
	case LeavePostMessage:
		return "POST:" + m.PostID
	case FollowMessage:
		return "FOLLOW:" + m.FollowingUserID
	case CommentMessage:
		return "COMMENT:" + m.MemeID
	default:
		return string(msg.Type())
	}
}

func (m *Manager) dedupeWindow(t MessageType) time.Duration {
	switch t {
	case TypeLike, TypeSave:
		return m.opts.LikeDedupeWindow
	case TypeJoinPost:
		return m.opts.JoinDedupeWindow
	default:
		return 0
	}
}

func (m *Manager) sortedSubscriptionsLocked() []string {
	subs := make([]string, 0, len(m.subscriptions))
	for id := range m.subscriptions {
		subs = append(subs, id)
	}
	slices.Sort(subs)
	return subs
}

// readPump, bağlantıdan frame okur ve Dispatcher'a teslim eder.
// Tek goroutine olduğu için handler'lar sırayla, varış sırasında çalışır.
func (m *Manager) readPump(epoch uint64, conn *websocket.Conn) {
	defer m.wg.Done()

	conn.SetReadLimit(maxMessageSize)
	m.extendReadDeadline(conn)
	conn.SetPongHandler(func(string) error {
		m.extendReadDeadline(conn)
		return nil
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			m.handleDrop(epoch, err)
			return
		}
		m.extendReadDeadline(conn)

		msg, err := DecodeMessage(raw)
		if err != nil {
			if errors.Is(err, ErrUnknownMessage) {
				glog.V(2).Infof("[ws] ignoring message: %v", err)
			} else {
				glog.Warningf("[ws] invalid message: %v", err)
			}
			continue
		}

		glog.V(2).Infof("[ws] <- %s", msg.Type())
		m.dispatcher.Dispatch(msg)
	}
}

// extendReadDeadline, her gelen frame'de okuma süresini yeniler.
// Ping kapalıysa deadline uygulanmaz.
func (m *Manager) extendReadDeadline(conn *websocket.Conn) {
	if m.opts.PingInterval <= 0 {
		return
	}
	if err := conn.SetReadDeadline(time.Now().Add(3*m.opts.PingInterval + writeWait)); err != nil {
		glog.V(2).Infof("[ws] failed to set read deadline: %v", err)
	}
}

// writePump, send kuyruğunu bağlantıya yazar ve PingInterval'da bir PING gönderir.
// Kuyruk kapanınca close frame yazıp bağlantıyı kapatır.
func (m *Manager) writePump(conn *websocket.Conn, send <-chan []byte) {
	defer m.wg.Done()
	defer conn.Close()

	var tick <-chan time.Time
	if m.opts.PingInterval > 0 {
		ticker := time.NewTicker(m.opts.PingInterval)
		defer ticker.Stop()
		tick = ticker.C
	}
	ping, _ := EncodeMessage(PingMessage{})

	for {
		select {
		case data, ok := <-send:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client disconnect"))
				return
			}
			if err := writeFrame(conn, data); err != nil {
				glog.Warningf("[ws] write failed: %v", err)
				return
			}
		case <-tick:
			if err := writeFrame(conn, ping); err != nil {
				glog.Warningf("[ws] ping failed: %v", err)
				return
			}
		}
	}
}

func writeFrame(conn *websocket.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// handleDrop, okuma hatası sonrası epoch'u kapatır ve gerekiyorsa reconnect başlatır.
func (m *Manager) handleDrop(epoch uint64, err error) {
	m.mu.Lock()
	if epoch != m.epoch || m.state != StateConnected {
		// Disconnect zaten işledi veya eski bir epoch.
		m.mu.Unlock()
		return
	}
	close(m.send)
	m.send = nil
	m.conn = nil
	m.state = StateDisconnected

	retry := true
	initialDelay := time.Duration(0)
	switch {
	case websocket.IsCloseError(err, websocket.CloseNormalClosure):
		// Sunucu bağlantıyı bilerek kapattı; tekrar bağlanmak için explicit Connect gerekir.
		retry = false
	case websocket.IsCloseError(err, websocket.ClosePolicyViolation):
		initialDelay = max(policyViolationDelay, m.opts.ReconnectMaxDelay)
	}
	if retry && !m.closed {
		m.startRetryLocked(initialDelay)
	}
	m.mu.Unlock()

	if retry {
		glog.Warningf("[ws] connection lost: %v", err)
	} else {
		glog.Infof("[ws] server closed connection: %v", err)
	}
	m.emit(StateChange{From: StateConnected, To: StateDisconnected})
}

// startRetryLocked, arka planda reconnect döngüsünü başlatır. Caller m.mu'yu tutmalı.
func (m *Manager) startRetryLocked(initialDelay time.Duration) {
	if m.opts.ReconnectAttempts <= 0 {
		m.degraded = true
		return
	}
	m.cancelRetryLocked()

	ctx, cancel := context.WithCancel(context.Background())
	m.stopRetry = cancel
	gen := m.generation
	go m.retryLoop(ctx, gen, initialDelay)
}

func (m *Manager) cancelRetryLocked() {
	if m.stopRetry != nil {
		m.stopRetry()
		m.stopRetry = nil
	}
}

// retryLoop, ReconnectAttempts kadar deneme yapar. Sınır aşılırsa degraded sinyali verir
// ve durur; devam etmek için explicit Connect gerekir.
func (m *Manager) retryLoop(ctx context.Context, gen uint64, initialDelay time.Duration) {
	for attempt := 1; attempt <= m.opts.ReconnectAttempts; attempt++ {
		delay := m.backoff(attempt)
		if attempt == 1 && initialDelay > delay {
			delay = initialDelay
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		glog.Infof("[ws] reconnect attempt %d/%d", attempt, m.opts.ReconnectAttempts)
		err := m.connect(ctx, attempt)
		if err == nil || errors.Is(err, errAlreadyActive) {
			return
		}
		if errors.Is(err, pkg.ErrNotConnected) || errors.Is(err, pkg.ErrNotAuthenticated) || ctx.Err() != nil {
			return
		}
		glog.Warningf("[ws] reconnect attempt %d failed: %v", attempt, err)
	}

	m.mu.Lock()
	if m.generation != gen || m.state != StateDisconnected || ctx.Err() != nil {
		m.mu.Unlock()
		return
	}
	m.degraded = true
	m.stopRetry = nil
	m.mu.Unlock()

	glog.Warningf("[ws] giving up after %d reconnect attempts, realtime features degraded", m.opts.ReconnectAttempts)
	m.emit(StateChange{From: StateDisconnected, To: StateDisconnected, Degraded: true, Attempt: m.opts.ReconnectAttempts})
}

// backoff, attempt'inci deneme öncesi beklenecek süre: delay * backoff^(attempt-1), max ile sınırlı.
func (m *Manager) backoff(attempt int) time.Duration {
	d := float64(m.opts.ReconnectDelay) * math.Pow(m.opts.ReconnectBackoff, float64(attempt-1))
	if m.opts.ReconnectMaxDelay > 0 && d > float64(m.opts.ReconnectMaxDelay) {
		return m.opts.ReconnectMaxDelay
	}
	return time.Duration(d)
}

func (m *Manager) emit(change StateChange) {
	m.listenMu.Lock()
	ids := make([]uint64, 0, len(m.listeners))
	for id := range m.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(StateChange), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, m.listeners[id])
	}
	m.listenMu.Unlock()

	glog.V(2).Infof("[ws] state %s -> %s (degraded=%t)", change.From, change.To, change.Degraded)
	for _, fn := range fns {
		fn(change)
	}
}
