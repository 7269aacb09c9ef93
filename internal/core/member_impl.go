package core

import "github.com/kodesesh/backend/internal/domain"

// memberSession implements MemberSession by pairing meta + transport.
type memberSession struct {
	meta *domain.Participant
	conn Conn
}

func NewMemberSession(meta *domain.Participant, conn Conn) MemberSession {
	return &memberSession{meta: meta, conn: conn}
}

func (m *memberSession) Meta() *domain.Participant { return m.meta }
func (m *memberSession) Signal() Conn              { return m.conn }
