package layer

import (
	"fmt"
	"strconv"
	"time"

	"github.com/mediocregopher/radix/v3"

	"github.com/flowscan/optset"
)

// Configuration for the redis mask layer
type RedisConfig struct {
	// The duration of the cached masks, set 0 to disable expiration
	Retention time.Duration

	// Connection to redis
	Connection *radix.Pool

	// Key prefix to be used in redis keys
	KeyPrefix string
}

// Redis layer is a redis-backed mask cache with configurable expiration time,
// masks are stored as decimal strings of their raw bit patterns
type Redis[TKey comparable, TFlag optset.Flag] struct {
	config RedisConfig
}

// Create a new redis mask layer
func NewRedis[TKey comparable, TFlag optset.Flag](config RedisConfig) *Redis[TKey, TFlag] {
	return &Redis[TKey, TFlag]{config: config}
}

// Unique identifier for this layer used for logging and metric purposes
func (l *Redis[TKey, TFlag]) Identifier() string { return "redis" }

// The function that will be used to resolve a set of keys
func (l *Redis[TKey, TFlag]) Get(keys []TKey) ([]TFlag, []error) {
	keysCount := len(keys)
	result := make([]TFlag, keysCount)
	errors := make([]error, keysCount)
	cacheBuffer := make([][]byte, keysCount)
	if err := l.config.Connection.Do(radix.Cmd(&cacheBuffer, "MGET", stringifyKeys(keys, l.config.KeyPrefix)...)); err != nil {
		fillArray(errors, err)
		return result, errors
	}
	for i := range keys {
		if cacheBuffer[i] == nil {
			errors[i] = optset.NewErrNotFound(keys[i])
			continue
		}
		raw, err := strconv.ParseUint(string(cacheBuffer[i]), 10, 64)
		if err != nil {
			errors[i] = err
			continue
		}
		result[i] = TFlag(raw)
	}
	return result, errors
}

// The function that will be called on saves and cache priming
func (l *Redis[TKey, TFlag]) Set(keys []TKey, masks []TFlag) []error {
	count := len(keys)

	// prepare a batch store using MSET
	cacheArguments := make([]string, 2*count)
	keysString := stringifyKeys(keys, l.config.KeyPrefix)
	for i, mask := range masks {
		cacheArguments[2*i] = keysString[i]
		cacheArguments[2*i+1] = strconv.FormatUint(uint64(mask), 10)
	}
	commands := make([]radix.CmdAction, 0, 1+count)
	commands = append(commands, radix.Cmd(nil, "MSET", cacheArguments...))

	// prepare EXPIRE commands
	if l.config.Retention > 0 {
		retention := strconv.FormatInt(int64(l.config.Retention.Seconds()), 10)
		for _, key := range keysString {
			commands = append(commands, radix.Cmd(nil, "EXPIRE", key, retention))
		}
	}

	if err := l.config.Connection.Do(radix.Pipeline(commands...)); err != nil {
		return fillArray(make([]error, count), err)
	}
	return nil
}

func stringifyKeys[TKey comparable](keys []TKey, prefix string) []string {
	return mapFn(keys, func(input TKey) string {
		return fmt.Sprintf("%s%v", prefix, input)
	})
}

func mapFn[T1 any, T2 any](arr []T1, fn func(input T1) T2) []T2 {
	newArr := make([]T2, len(arr))
	for i, v := range arr {
		newArr[i] = fn(v)
	}
	return newArr
}

func fillArray[T any](arr []T, value T) []T {
	for i := range arr {
		arr[i] = value
	}
	return arr
}
