package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
)

func (db *PgChatRepository) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *PgChatRepository) PutConnection(ctx context.Context, params PutConnectionParams) (Connection, error) {
	res := db.conn.QueryRowContext(ctx,
		"INSERT INTO connections (connection_id, user_id, room_id, username, connected_at) "+
			"VALUES ($1, $2, $3, $4, $5) "+
			"ON CONFLICT (connection_id) DO UPDATE SET "+
			"user_id = EXCLUDED.user_id, room_id = EXCLUDED.room_id, "+
			"username = EXCLUDED.username, connected_at = EXCLUDED.connected_at "+
			"RETURNING connection_id, user_id, room_id, username, connected_at",
		params.ConnectionId,
		params.UserId,
		params.RoomId,
		params.Username,
		time.Now().UTC(),
	)

	var conn Connection
	err := res.Scan(
		&conn.ConnectionId,
		&conn.UserId,
		&conn.RoomId,
		&conn.Username,
		&conn.ConnectedAt,
	)

	return conn, err
}

func (db *PgChatRepository) GetConnection(ctx context.Context, connectionId string) (Connection, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT connection_id, user_id, room_id, username, connected_at FROM connections "+
			"WHERE connection_id = $1 LIMIT 1",
		connectionId,
	)

	var conn Connection
	err := row.Scan(
		&conn.ConnectionId,
		&conn.UserId,
		&conn.RoomId,
		&conn.Username,
		&conn.ConnectedAt,
	)

	return conn, err
}

func (db *PgChatRepository) DeleteConnection(ctx context.Context, connectionId string) error {
	_, err := db.conn.ExecContext(ctx,
		"DELETE FROM connections WHERE connection_id = $1",
		connectionId,
	)

	return err
}

func (db *PgChatRepository) ListRoomConnections(ctx context.Context, roomId string) ([]Connection, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT connection_id, user_id, room_id, username, connected_at FROM connections "+
			"WHERE room_id = $1",
		roomId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conns := make([]Connection, 0)
	for rows.Next() {
		var conn Connection
		if err := rows.Scan(
			&conn.ConnectionId,
			&conn.UserId,
			&conn.RoomId,
			&conn.Username,
			&conn.ConnectedAt,
		); err != nil {
			return nil, err
		}

		conns = append(conns, conn)
	}

	return conns, rows.Err()
}

func (db *PgChatRepository) CreateMessage(ctx context.Context, msg Message) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO messages (id, room_id, content, sender, sender_name, connection_id, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7)",
		msg.Id,
		msg.RoomId,
		msg.Content,
		msg.Sender,
		msg.SenderName,
		msg.ConnectionId,
		msg.CreatedAt,
	)

	return err
}

func (db *PgChatRepository) ListMessages(ctx context.Context, params ListMessagesParams) ([]Message, error) {
	var (
		rows *sql.Rows
		err  error
	)

	if params.Before.IsZero() {
		rows, err = db.conn.QueryContext(ctx,
			"SELECT id, room_id, content, sender, sender_name, connection_id, created_at FROM messages "+
				"WHERE room_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2",
			params.RoomId,
			params.Limit,
		)
	} else {
		rows, err = db.conn.QueryContext(ctx,
			"SELECT id, room_id, content, sender, sender_name, connection_id, created_at FROM messages "+
				"WHERE room_id = $1 AND (created_at, id) < ($2, $3) "+
				"ORDER BY created_at DESC, id DESC LIMIT $4",
			params.RoomId,
			params.Before,
			params.BeforeId,
			params.Limit,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		var msg Message
		if err := rows.Scan(
			&msg.Id,
			&msg.RoomId,
			&msg.Content,
			&msg.Sender,
			&msg.SenderName,
			&msg.ConnectionId,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}

		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

func (db *PgChatRepository) UpsertReadReceipt(ctx context.Context, receipt ReadReceipt) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO read_receipts (user_id, message_id, room_id, is_read, read_at) "+
			"VALUES ($1, $2, $3, $4, $5) "+
			"ON CONFLICT (user_id, message_id) DO UPDATE SET "+
			"room_id = EXCLUDED.room_id, is_read = EXCLUDED.is_read, read_at = EXCLUDED.read_at",
		receipt.UserId,
		receipt.MessageId,
		receipt.RoomId,
		receipt.IsRead,
		receipt.ReadAt,
	)

	return err
}

func (db *PgChatRepository) GetReadReceipt(ctx context.Context, userId, messageId string) (ReadReceipt, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT user_id, message_id, room_id, is_read, read_at FROM read_receipts "+
			"WHERE user_id = $1 AND message_id = $2 LIMIT 1",
		userId,
		messageId,
	)

	var receipt ReadReceipt
	err := row.Scan(
		&receipt.UserId,
		&receipt.MessageId,
		&receipt.RoomId,
		&receipt.IsRead,
		&receipt.ReadAt,
	)

	return receipt, err
}

func (db *PgChatRepository) ListRoomReadReceipts(ctx context.Context, userId, roomId string) ([]ReadReceipt, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT user_id, message_id, room_id, is_read, read_at FROM read_receipts "+
			"WHERE user_id = $1 AND room_id = $2",
		userId,
		roomId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	receipts := make([]ReadReceipt, 0)
	for rows.Next() {
		var receipt ReadReceipt
		if err := rows.Scan(
			&receipt.UserId,
			&receipt.MessageId,
			&receipt.RoomId,
			&receipt.IsRead,
			&receipt.ReadAt,
		); err != nil {
			return nil, err
		}

		receipts = append(receipts, receipt)
	}

	return receipts, rows.Err()
}

func (db *PgChatRepository) CreateRoom(ctx context.Context, params CreateRoomParams) (Room, error) {
	now := time.Now().UTC()
	res := db.conn.QueryRowContext(ctx,
		"INSERT INTO rooms (id, name, description, is_private, created_by, members, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8) "+
			"RETURNING id, name, description, is_private, created_by, members, created_at, updated_at",
		params.Id,
		params.Name,
		params.Description,
		params.IsPrivate,
		params.CreatedBy,
		pq.Array(params.Members),
		now,
		now,
	)

	var room Room
	err := res.Scan(
		&room.Id,
		&room.Name,
		&room.Description,
		&room.IsPrivate,
		&room.CreatedBy,
		pq.Array(&room.Members),
		&room.CreatedAt,
		&room.UpdatedAt,
	)

	return room, err
}

func (db *PgChatRepository) GetRoom(ctx context.Context, roomId string) (Room, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT id, name, description, is_private, created_by, members, created_at, updated_at FROM rooms "+
			"WHERE id = $1 LIMIT 1",
		roomId,
	)

	var room Room
	err := row.Scan(
		&room.Id,
		&room.Name,
		&room.Description,
		&room.IsPrivate,
		&room.CreatedBy,
		pq.Array(&room.Members),
		&room.CreatedAt,
		&room.UpdatedAt,
	)

	return room, err
}

func (db *PgChatRepository) ListRooms(ctx context.Context, params ListRoomsParams) ([]Room, error) {
	var (
		rows *sql.Rows
		err  error
	)

	if params.CreatedBy != "" {
		rows, err = db.conn.QueryContext(ctx,
			"SELECT id, name, description, is_private, created_by, members, created_at, updated_at FROM rooms "+
				"WHERE created_by = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3",
			params.CreatedBy,
			params.Limit,
			params.Offset,
		)
	} else {
		rows, err = db.conn.QueryContext(ctx,
			"SELECT id, name, description, is_private, created_by, members, created_at, updated_at FROM rooms "+
				"ORDER BY created_at DESC LIMIT $1 OFFSET $2",
			params.Limit,
			params.Offset,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rooms := make([]Room, 0)
	for rows.Next() {
		var room Room
		if err := rows.Scan(
			&room.Id,
			&room.Name,
			&room.Description,
			&room.IsPrivate,
			&room.CreatedBy,
			pq.Array(&room.Members),
			&room.CreatedAt,
			&room.UpdatedAt,
		); err != nil {
			return nil, err
		}

		rooms = append(rooms, room)
	}

	return rooms, rows.Err()
}

func (db *PgChatRepository) DeleteRoom(ctx context.Context, roomId string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, "DELETE FROM read_receipts WHERE room_id = $1", roomId)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, "DELETE FROM messages WHERE room_id = $1", roomId)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, "DELETE FROM rooms WHERE id = $1", roomId)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (db *PgChatRepository) CreateAccount(ctx context.Context, params CreateAccountParams) (User, error) {
	res := db.conn.QueryRowContext(ctx,
		"INSERT INTO accounts (id, username, email, password_hash, created_at) "+
			"VALUES ($1, $2, $3, $4, $5) RETURNING id, username, email, created_at",
		params.Id,
		params.Username,
		params.EmailAddress,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
		&u.CreatedAt,
	)

	return u, err
}

func (db *PgChatRepository) UpdateAccount(ctx context.Context, params UpdateAccountParams) (User, error) {
	res := db.conn.QueryRowContext(ctx,
		"UPDATE accounts SET username = $2, password_hash = $3, updated_at = $4 "+
			"WHERE id = $1 RETURNING id, username, email",
		params.UserId,
		params.Username,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
	)

	return u, err
}

func (db *PgChatRepository) GetAccountById(ctx context.Context, userId string) (User, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT id, username, email, created_at FROM accounts "+
			"WHERE id = $1 LIMIT 1",
		userId,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.EmailAddress,
		&user.CreatedAt,
	)

	return user, err
}

func (db *PgChatRepository) GetAccountByEmail(ctx context.Context, email string) (User, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT id, username, email, password_hash FROM accounts "+
			"WHERE email = $1 LIMIT 1",
		email,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.EmailAddress,
		&user.PasswordHash,
	)

	return user, err
}
