package likes

import (
	"context"
	"strconv"

	"github.com/go-redis/redis"
	"github.com/mikepea/quill/pkg/quill/models"
	"gorm.io/gorm"
)

// RankKey is the Redis sorted set holding like counts by article
const RankKey = "rank:article:likes"

// RankEntry is one position in the like ranking
type RankEntry struct {
	ArticleID uint  `json:"article_id"`
	Score     int64 `json:"score"`
}

// Ranking orders articles by like count
type Ranking interface {
	Add(ctx context.Context, articleID uint, delta int64) error
	Top(ctx context.Context, n int) ([]RankEntry, error)
	Remove(ctx context.Context, articleID uint) error
}

// DBRanking computes the ranking from the likes table on every read
type DBRanking struct {
	db *gorm.DB
}

// NewDBRanking creates a database-backed ranking
func NewDBRanking(db *gorm.DB) *DBRanking {
	return &DBRanking{db: db}
}

// Add is a no-op; the likes table is the source of truth
func (r *DBRanking) Add(context.Context, uint, int64) error {
	return nil
}

// Remove is a no-op; deleted articles take their likes rows with them
func (r *DBRanking) Remove(context.Context, uint) error {
	return nil
}

// Top returns the n most liked articles
func (r *DBRanking) Top(ctx context.Context, n int) ([]RankEntry, error) {
	return topFromDB(r.db.WithContext(ctx), n)
}

func topFromDB(db *gorm.DB, n int) ([]RankEntry, error) {
	entries := []RankEntry{}
	query := db.Model(&models.LikeArticle{}).
		Select("article_id, COUNT(*) AS score").
		Group("article_id").
		Order("score DESC, article_id ASC")
	if n > 0 {
		query = query.Limit(n)
	}
	if err := query.Scan(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// RedisRanking keeps like counts in a Redis sorted set
type RedisRanking struct {
	client *redis.Client
	key    string
}

// NewRedisRanking creates a ranking stored under RankKey
func NewRedisRanking(client *redis.Client) *RedisRanking {
	return &RedisRanking{client: client, key: RankKey}
}

// Connect opens a Redis client and checks the connection
func Connect(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if _, err := client.Ping().Result(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// Add moves the article's score by delta, dropping it at zero
func (r *RedisRanking) Add(_ context.Context, articleID uint, delta int64) error {
	member := strconv.FormatUint(uint64(articleID), 10)
	score, err := r.client.ZIncrBy(r.key, float64(delta), member).Result()
	if err != nil {
		return err
	}
	if score <= 0 {
		return r.client.ZRem(r.key, member).Err()
	}
	return nil
}

// Remove drops the article from the sorted set
func (r *RedisRanking) Remove(_ context.Context, articleID uint) error {
	return r.client.ZRem(r.key, strconv.FormatUint(uint64(articleID), 10)).Err()
}

// Top returns the n highest scored articles
func (r *RedisRanking) Top(_ context.Context, n int) ([]RankEntry, error) {
	stop := int64(n - 1)
	if n <= 0 {
		stop = -1
	}
	zres, err := r.client.ZRevRangeWithScores(r.key, 0, stop).Result()
	if err != nil {
		if err == redis.Nil {
			return []RankEntry{}, nil
		}
		return nil, err
	}

	entries := make([]RankEntry, 0, len(zres))
	for _, z := range zres {
		memberStr, _ := z.Member.(string)
		id, err := strconv.ParseUint(memberStr, 10, 64)
		if err != nil {
			continue
		}
		entries = append(entries, RankEntry{ArticleID: uint(id), Score: int64(z.Score)})
	}
	return entries, nil
}

// Rebuild replaces the sorted set with counts from the likes table
func (r *RedisRanking) Rebuild(ctx context.Context, db *gorm.DB) error {
	entries, err := topFromDB(db.WithContext(ctx), 0)
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(r.key)
	for _, e := range entries {
		pipe.ZAdd(r.key, redis.Z{
			Score:  float64(e.Score),
			Member: strconv.FormatUint(uint64(e.ArticleID), 10),
		})
	}
	_, err = pipe.Exec()
	return err
}
