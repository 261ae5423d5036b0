package redis

import "github.com/redis/go-redis/v9"

// releaseScript deletes the lock only if it still holds the caller's token.
//
// KEYS[1] lock key
// ARGV[1] token
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// acquireOrEnqueueScript takes the lock or, if it is held, appends the action
// to the queue, in one step. An action can therefore never be queued after
// the holder has already drained and released.
//
// KEYS[1] lock key
// KEYS[2] queue key
// ARGV[1] token
// ARGV[2] lock TTL in ms
// ARGV[3] action JSON
// ARGV[4] queue TTL in ms
var acquireOrEnqueueScript = redis.NewScript(`
if redis.call('SET', KEYS[1], ARGV[1], 'NX', 'PX', ARGV[2]) then
	if redis.call('LLEN', KEYS[2]) > 0 then
		redis.call('RPUSH', KEYS[2], ARGV[3])
		redis.call('PEXPIRE', KEYS[2], ARGV[4])
		return 'ACQUIRED_WITH_BACKLOG'
	end
	return 'ACQUIRED'
end
redis.call('RPUSH', KEYS[2], ARGV[3])
redis.call('PEXPIRE', KEYS[2], ARGV[4])
return 'ENQUEUED'
`)

// drainScript verifies ownership, pops the next action and hands the lock to
// a new token, prefetching everything the next action needs. Replies:
//
//	{'LOST'}
//	{'DRAINED'}
//	{'NEXT', action, gameHash, timer, sessionHash}
//
// KEYS[1] lock key
// KEYS[2] queue key
// KEYS[3] game key
// KEYS[4] active timer key
// KEYS[5] package key
// ARGV[1] old token
// ARGV[2] new token
// ARGV[3] lock TTL in ms
// ARGV[4] game TTL in ms
// ARGV[5] session key prefix
var drainScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) ~= ARGV[1] then
	return {'LOST'}
end

local action = redis.call('LPOP', KEYS[2])
if not action then
	redis.call('DEL', KEYS[1])
	return {'DRAINED'}
end

redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])

local game = redis.call('HGETALL', KEYS[3])
if #game > 0 then
	redis.call('PEXPIRE', KEYS[3], ARGV[4])
	redis.call('PEXPIRE', KEYS[5], ARGV[4])
end

local timer = redis.call('GET', KEYS[4])
if not timer then
	timer = ''
end

local session = {}
local ok, decoded = pcall(cjson.decode, action)
if ok and type(decoded) == 'table' and type(decoded['socketId']) == 'string' and decoded['socketId'] ~= '' then
	session = redis.call('HGETALL', ARGV[5] .. decoded['socketId'])
end

return {'NEXT', action, game, timer, session}
`)
