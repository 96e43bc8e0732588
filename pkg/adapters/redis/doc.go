/*
Package redis runs children through a Redis work queue.

The Loader pushes one Request per child on the "<prefix>requests" list and
listens to "<prefix>events:<handle>". A Worker, possibly in another process,
pops requests, serves each with an in-process page and publishes the page's
wire records on that channel, one record per message.
*/
package redis
