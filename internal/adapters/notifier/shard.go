package notifier

import (
	"hash/fnv"
	"strconv"
)

// shardFor maps a session id to a dispatch shard. A session always lands on
// the same shard so one dispatcher owns its events and publish order holds.
func shardFor(session string, shards int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(session))
	return int(h.Sum32() % uint32(shards))
}

func shardName(i int) string {
	return "shard_" + strconv.Itoa(i)
}
