// Command example walks one component through the full fetch lifecycle:
// a server render that fetches and serializes, and a client that decodes
// the payload, hydrates without refetching, and then refetches on demand.
package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/a-h/templ"

	"github.com/pthm/cmpfetch"
	"github.com/pthm/cmpfetch/lib/loop"
)

var codecKey = []byte("example-payload-codec-key-32bite")

// fetchProfile is the author-supplied fetch callback shared by the server
// and client renditions of the component.
func fetchProfile(_ context.Context, inst *cmpfetch.Instance) error {
	// Stand-in for a database or API call.
	return inst.State().Set("user", "ada")
}

func profileView(inst *cmpfetch.Instance) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		user, _ := inst.State().Get("user")
		_, err := fmt.Fprintf(w, "<p>profile: %v</p>", user)
		return err
	})
}

func main() {
	blob, key, html := renderOnServer()
	fmt.Println("server html:", html)
	hydrateOnClient(blob, key)
}

func renderOnServer() (blob string, key int, html string) {
	rt := cmpfetch.NewRuntime(cmpfetch.Env{Server: true})
	reqPayload := rt.ResetRequest()

	inst := rt.NewInstance("profile", nil, cmpfetch.InstanceOptions{})
	ctx := cmpfetch.WithInstance(context.Background(), inst)
	if _, err := cmpfetch.DeclareFetch(ctx, fetchProfile); err != nil {
		log.Fatalf("declare: %v", err)
	}

	key, ok := rt.ServerFetch(context.Background(), inst)
	if !ok {
		log.Fatal("instance did not participate in server fetch")
	}

	var buf bytes.Buffer
	if err := cmpfetch.WithMarker(key, profileView(inst)).Render(context.Background(), &buf); err != nil {
		log.Fatalf("render: %v", err)
	}

	codec, err := cmpfetch.NewPayloadCodec(codecKey)
	if err != nil {
		log.Fatalf("codec: %v", err)
	}
	blob, err = codec.Encode(reqPayload, false)
	if err != nil {
		log.Fatalf("encode payload: %v", err)
	}
	return blob, key, buf.String()
}

func hydrateOnClient(blob string, key int) {
	codec, err := cmpfetch.NewPayloadCodec(codecKey)
	if err != nil {
		log.Fatalf("codec: %v", err)
	}
	reqPayload, err := codec.Decode(blob, false)
	if err != nil {
		log.Fatalf("decode payload: %v", err)
	}

	ticks := loop.New()
	rt := cmpfetch.NewRuntime(cmpfetch.Env{},
		cmpfetch.WithScheduler(ticks),
		cmpfetch.WithPayload(reqPayload))

	inst := rt.NewInstance("profile", nil, cmpfetch.InstanceOptions{
		FetchDelay: 50 * time.Millisecond,
	})
	inst.SetNode(cmpfetch.MarkedNode(key))

	ctx := cmpfetch.WithInstance(context.Background(), inst)
	handle, err := cmpfetch.DeclareFetch(ctx, fetchProfile)
	if err != nil {
		log.Fatalf("declare: %v", err)
	}

	if err := inst.Mount(); err != nil {
		log.Fatalf("mount: %v", err)
	}
	rt.Wait()
	ticks.Drain()

	user, _ := inst.State().Get("user")
	fmt.Printf("hydrated: user=%v hydrated=%v in-flight=%d\n", user, inst.Hydrated(), rt.InFlight())

	// Imperative refetch: runs the callback for real this time.
	handle.Fetch(context.Background())
	ticks.Drain()
	fmt.Printf("refetched: pending=%v settled-at=%d error=%v\n",
		handle.State.Pending(), handle.State.Timestamp(), handle.State.Err())
}
