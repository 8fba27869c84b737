package persons

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/storeauth/internal/common"
	"github.com/dmitrijs2005/storeauth/internal/server/models"
	"github.com/redis/go-redis/v9"
)

const (
	fieldRefreshTokenID = "refresh_token_id"
	fieldCreatedAt      = "created_at"
)

// saveRefreshIDLua updates the refresh id only if the person hash exists.
// KEYS[1] = person key, ARGV[1] = refresh id ("" clears it).
// Returns 1 on update, 0 when the person is missing.
var saveRefreshIDLua = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
redis.call('HSET', KEYS[1], 'refresh_token_id', ARGV[1])
return 1
`)

// RedisRepository keeps each person in a hash at "<prefix>:<id>" and
// allocates ids from the counter at "<prefix>:seq".
type RedisRepository struct {
	redis  redis.UniversalClient
	prefix string
}

func NewRedisRepository(client redis.UniversalClient, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = "person"
	}
	return &RedisRepository{redis: client, prefix: prefix}
}

func (r *RedisRepository) key(id int64) string {
	return r.prefix + ":" + strconv.FormatInt(id, 10)
}

func (r *RedisRepository) Create(ctx context.Context, p *models.Person) (*models.Person, error) {
	id, err := r.redis.Incr(ctx, r.prefix+":seq").Result()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	p.ID = id
	p.CreatedAt = time.Now().UTC().Truncate(time.Second)

	if err := r.redis.HSet(ctx, r.key(id),
		fieldRefreshTokenID, p.RefreshTokenID,
		fieldCreatedAt, p.CreatedAt.Unix(),
	).Err(); err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	return p, nil
}

func (r *RedisRepository) FindPersonByID(ctx context.Context, id int64) (*models.Person, error) {
	fields, err := r.redis.HGetAll(ctx, r.key(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	if len(fields) == 0 {
		return nil, common.ErrorNotFound
	}

	p := &models.Person{ID: id, RefreshTokenID: fields[fieldRefreshTokenID]}
	if raw, ok := fields[fieldCreatedAt]; ok {
		sec, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt %s for person %d: %w", fieldCreatedAt, id, err)
		}
		p.CreatedAt = time.Unix(sec, 0).UTC()
	}
	return p, nil
}

func (r *RedisRepository) SavePerson(ctx context.Context, p *models.Person) error {
	n, err := saveRefreshIDLua.Run(ctx, r.redis, []string{r.key(p.ID)}, p.RefreshTokenID).Int()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
