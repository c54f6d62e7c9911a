package transfer

import "github.com/swapbytes/swapbytes/internal/identity"

// PendingOffers tracks (peer, filename) -> size for an inbound Offer
// awaiting the local user's accept/decline, per §3's PendingOffer data
// model. It is populated by the dispatcher when an Offer request
// arrives and consulted by the network task when the corresponding
// AcceptOffer/DeclineOffer command is issued, since that command only
// names the filename — the size must come from the original offer.
type PendingOffers struct {
	sizes map[Key]int64
}

func NewPendingOffers() *PendingOffers {
	return &PendingOffers{sizes: make(map[Key]int64)}
}

func (p *PendingOffers) Put(peer identity.ID, filename string, size int64) {
	p.sizes[Key{peer, filename}] = size
}

func (p *PendingOffers) Get(peer identity.ID, filename string) (int64, bool) {
	size, ok := p.sizes[Key{peer, filename}]
	return size, ok
}

func (p *PendingOffers) Delete(peer identity.ID, filename string) {
	delete(p.sizes, Key{peer, filename})
}
