package database

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *Store) EnvelopeAdd(adminChatId, adminMsgId, userId int64) error {
	res := s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&Envelope{
		AdminChatId: adminChatId,
		AdminMsgId:  adminMsgId,
		UserId:      userId,
	})
	return res.Error
}

// EnvelopeGetUser returns the user behind the envelope with the given admin
// side ids. found is false when the message is not an envelope.
func (s *Store) EnvelopeGetUser(adminChatId, adminMsgId int64) (userId int64, found bool, err error) {
	var envelope Envelope
	res := s.db.Where("admin_chat_id = ? AND admin_msg_id = ?", adminChatId, adminMsgId).First(&envelope)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if res.Error != nil {
		return 0, false, res.Error
	}
	return envelope.UserId, true, nil
}

func (s *Store) ContactAddOrUpdate(contact Contact) error {
	res := s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&contact)
	return res.Error
}

func (s *Store) ContactGet(userId int64) (Contact, bool) {
	var contact Contact
	res := s.db.Where("user_id = ?", userId).First(&contact)
	return contact, res.Error == nil
}

func (s *Store) ContactGetAll() (map[int64]Contact, error) {
	var contacts []Contact
	res := s.db.Find(&contacts)

	results := make(map[int64]Contact, len(contacts))
	for _, contact := range contacts {
		results[contact.UserId] = contact
	}
	return results, res.Error
}
