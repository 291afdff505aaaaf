package ws

import (
	"runtime/debug"
	"sync"

	"github.com/golang/glog"
)

// HandlerFunc, bir mesaj tipine kayıtlı handler.
type HandlerFunc func(Message)

// registration, tek bir Register çağrısı. id, unregister'ın tam olarak bu kaydı
// silmesi için kullanılır (aynı fonksiyon iki kez kaydedilebilir).
type registration struct {
	id uint64
	fn HandlerFunc
}

// Dispatcher, mesaj type tag'i → sıralı handler listesi registry'si (pub/sub).
//
// Birden fazla bağımsız subsystem aynı tipe kayıt olabilir: ör. hem bildirim
// listesi hem içerik store'u LIKE dinler.
//
// Dispatch senkron çalışır ve handler'ları kayıt sırasıyla çağırır. Manager her
// bağlantı için tek bir read goroutine'inden Dispatch eder; böylece bir epoch
// içinde teslim sırası varış sırasına eşittir.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[MessageType][]registration
	nextID   uint64
}

// NewDispatcher, boş bir Dispatcher oluşturur.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[MessageType][]registration),
	}
}

// Register, handler'ı msgType için listenin sonuna ekler.
// Dönen fonksiyon sadece bu kaydı kaldırır; birden fazla çağrılması güvenlidir.
func (d *Dispatcher) Register(msgType MessageType, fn HandlerFunc) (unregister func()) {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.handlers[msgType] = append(d.handlers[msgType], registration{id: id, fn: fn})
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { d.remove(msgType, id) })
	}
}

// Handle, concrete mesaj tipi için tip güvenli kayıt.
//
//	ws.Handle(dispatcher, func(m ws.LikeMessage) { ... })
//
// Tag, M'nin Type() metodundan alınır; yanlış tag'le kayıt yapılamaz.
func Handle[M Message](d *Dispatcher, fn func(M)) (unregister func()) {
	var zero M
	return d.Register(zero.Type(), func(msg Message) {
		if m, ok := msg.(M); ok {
			fn(m)
		}
	})
}

// Dispatch, mesajın tipine kayıtlı tüm handler'ları kayıt sırasıyla çağırır.
// Panic eden bir handler diğerlerinin çalışmasını engellemez. Çağrılan handler sayısını döner.
//
// Handler listesi çağrıdan önce kopyalanır: handler içinden Register / unregister
// yapmak deadlock oluşturmaz ve o anki Dispatch'i etkilemez.
func (d *Dispatcher) Dispatch(msg Message) int {
	if msg == nil {
		return 0
	}

	d.mu.RLock()
	regs := append([]registration(nil), d.handlers[msg.Type()]...)
	d.mu.RUnlock()

	for _, r := range regs {
		d.invoke(msg, r.fn)
	}

	if len(regs) == 0 && msg.Type() != TypePong && msg.Type() != TypePing {
		glog.V(2).Infof("[ws] no handler for %s", msg.Type())
	}
	return len(regs)
}

func (d *Dispatcher) invoke(msg Message, fn HandlerFunc) {
	defer func() {
		if r := recover(); r != nil {
			glog.Errorf("[ws] handler for %s panicked: %v\n%s", msg.Type(), r, debug.Stack())
		}
	}()
	fn(msg)
}

func (d *Dispatcher) remove(msgType MessageType, id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	regs := d.handlers[msgType]
	for i, r := range regs {
		if r.id == id {
			// Yeni slice: Dispatch'in elindeki kopya etkilenmez.
			next := make([]registration, 0, len(regs)-1)
			next = append(next, regs[:i]...)
			next = append(next, regs[i+1:]...)
			if len(next) == 0 {
				delete(d.handlers, msgType)
			} else {
				d.handlers[msgType] = next
			}
			return
		}
	}
}
