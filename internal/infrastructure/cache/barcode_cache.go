package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/wms-ledger/internal/domain/entity"
	"github.com/jhoicas/wms-ledger/internal/domain/repository"
	"github.com/jhoicas/wms-ledger/pkg/logger"
)

// Store operaciones mínimas de clave/valor. ErrMiss cuando la clave no existe.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// ErrMiss clave ausente en la caché.
var ErrMiss = errors.New("cache: miss")

// RedisStore adapta *redis.Client a Store.
type RedisStore struct {
	client *redis.Client
}

// NewRedisClient abre el cliente y verifica la conexión con PING.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return v, err
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// negativeTTL tiempo que se recuerda un código inexistente.
const negativeTTL = 30 * time.Second

// notFoundMarker valor guardado para códigos sin SKU.
const notFoundMarker = "-"

type cachedSKU struct {
	ID       string `json:"id"`
	ClientID string `json:"client_id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Barcode  string `json:"barcode"`
}

// BarcodeCache decorador read-through sobre RegistryRepository.FindSKUByBarcode.
// El resto de métodos pasan directo al repositorio. Un fallo de Redis nunca bloquea el escaneo.
type BarcodeCache struct {
	repository.RegistryRepository
	store Store
	ttl   time.Duration
	log   *logger.Logger
}

var _ repository.RegistryRepository = (*BarcodeCache)(nil)

func NewBarcodeCache(next repository.RegistryRepository, store Store, ttl time.Duration, log *logger.Logger) *BarcodeCache {
	if log == nil {
		log = logger.Nop()
	}
	return &BarcodeCache{RegistryRepository: next, store: store, ttl: ttl, log: log.Component("barcode_cache")}
}

func barcodeKey(clientID, barcode string) string {
	return "wms:barcode:" + clientID + ":" + barcode
}

// FindSKUByBarcode consulta Redis y, en miss, el repositorio; guarda el resultado con TTL.
func (c *BarcodeCache) FindSKUByBarcode(ctx context.Context, clientID, barcode string) (*entity.SKU, error) {
	key := barcodeKey(clientID, barcode)

	raw, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		if raw == notFoundMarker {
			return nil, nil
		}
		var cs cachedSKU
		if jerr := json.Unmarshal([]byte(raw), &cs); jerr == nil {
			return &entity.SKU{ID: cs.ID, ClientID: cs.ClientID, Code: cs.Code, Name: cs.Name, Barcode: cs.Barcode}, nil
		}
		c.log.Warn().Str("key", key).Msg("entrada de caché corrupta, se consulta la base")
	case !errors.Is(err, ErrMiss):
		c.log.Warn().Err(err).Str("key", key).Msg("redis no disponible, se consulta la base")
	}

	sku, err := c.RegistryRepository.FindSKUByBarcode(ctx, clientID, barcode)
	if err != nil {
		return nil, err
	}

	value, ttl := notFoundMarker, negativeTTL
	if sku != nil {
		b, _ := json.Marshal(cachedSKU{ID: sku.ID, ClientID: sku.ClientID, Code: sku.Code, Name: sku.Name, Barcode: sku.Barcode})
		value, ttl = string(b), c.ttl
	}
	if serr := c.store.Set(ctx, key, value, ttl); serr != nil {
		c.log.Warn().Err(serr).Str("key", key).Msg("no se pudo guardar en caché")
	}
	return sku, nil
}
