package database

import (
	"database/sql"
	"fmt"

	"starboard-bot/models"
)

// UpsertOriginal records an original message. Re-upserting an existing row is
// a no-op so admin flags survive racing vote handlers.
func UpsertOriginal(db *sql.DB, o *models.Original) error {
	forced, err := marshalInt64s(o.ForcedTo)
	if err != nil {
		return err
	}
	_, err = db.Exec(
		`INSERT OR IGNORE INTO messages (message_id, guild_id, channel_id, author_id, is_nsfw, forced_to)
         VALUES (?, ?, ?, ?, ?, ?)`,
		o.MessageID, o.GuildID, o.ChannelID, o.AuthorID, o.IsNSFW, forced,
	)
	return mapError(err)
}

// GetOriginal loads one original row; ErrNotFound when absent.
func GetOriginal(db *sql.DB, messageID int64) (*models.Original, error) {
	var o models.Original
	var forced string
	var reason sql.NullString
	err := db.QueryRow(
		`SELECT message_id, guild_id, channel_id, author_id, is_nsfw, forced_to, trashed, trash_reason, frozen
         FROM messages WHERE message_id = ?`, messageID,
	).Scan(&o.MessageID, &o.GuildID, &o.ChannelID, &o.AuthorID, &o.IsNSFW, &forced, &o.Trashed, &reason, &o.Frozen)
	if err != nil {
		return nil, mapError(err)
	}
	if o.ForcedTo, err = unmarshalInt64s(forced); err != nil {
		return nil, err
	}
	if reason.Valid {
		o.TrashReason = &reason.String
	}
	return &o, nil
}

// SetTrashed flips the trashed flag and reason on an original.
func SetTrashed(db *sql.DB, messageID int64, trashed bool, reason *string) error {
	var r any
	if reason != nil {
		r = *reason
	}
	res, err := db.Exec("UPDATE messages SET trashed = ?, trash_reason = ? WHERE message_id = ?", trashed, r, messageID)
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetFrozen flips the frozen flag on an original.
func SetFrozen(db *sql.DB, messageID int64, frozen bool) error {
	res, err := db.Exec("UPDATE messages SET frozen = ? WHERE message_id = ?", frozen, messageID)
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetForced adds or removes a starboard from the original's forced-to set.
// The read-modify-write runs in a short transaction.
func SetForced(db *sql.DB, messageID, starboardID int64, forced bool) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var raw string
	if err := tx.QueryRow("SELECT forced_to FROM messages WHERE message_id = ?", messageID).Scan(&raw); err != nil {
		return mapError(err)
	}
	ids, err := unmarshalInt64s(raw)
	if err != nil {
		return err
	}

	var next []int64
	for _, id := range ids {
		if id != starboardID {
			next = append(next, id)
		}
	}
	if forced {
		next = append(next, starboardID)
	}
	s, err := marshalInt64s(next)
	if err != nil {
		return err
	}
	if _, err := tx.Exec("UPDATE messages SET forced_to = ? WHERE message_id = ?", s, messageID); err != nil {
		return mapError(err)
	}
	return tx.Commit()
}

// UpsertVote writes one vote row, replacing any previous row for the same
// (original, starboard, voter) so an up-to-down flip is a single statement.
func UpsertVote(db *sql.DB, v *models.Vote) error {
	_, err := db.Exec(
		`INSERT OR REPLACE INTO votes (message_id, starboard_id, user_id, target_author, is_downvote)
         VALUES (?, ?, ?, ?, ?)`,
		v.MessageID, v.StarboardID, v.UserID, v.TargetAuthor, v.IsDownvote,
	)
	return mapError(err)
}

// DeleteVote removes one voter's vote for one starboard. Idempotent.
func DeleteVote(db *sql.DB, messageID, starboardID, userID int64) error {
	_, err := db.Exec(
		"DELETE FROM votes WHERE message_id = ? AND starboard_id = ? AND user_id = ?",
		messageID, starboardID, userID,
	)
	return mapError(err)
}

// DeleteVotesForVoter removes a voter's votes across all starboards for one
// original. Used when a reaction is removed and the emoji is unknown.
func DeleteVotesForVoter(db *sql.DB, messageID, userID int64) error {
	_, err := db.Exec("DELETE FROM votes WHERE message_id = ? AND user_id = ?", messageID, userID)
	return mapError(err)
}

// DeleteVotesForStarboard removes every vote an original holds on one
// starboard. Used when all reactions of one emoji are cleared at once.
func DeleteVotesForStarboard(db *sql.DB, messageID, starboardID int64) error {
	_, err := db.Exec(
		"DELETE FROM votes WHERE message_id = ? AND starboard_id = ?",
		messageID, starboardID,
	)
	return mapError(err)
}

// DeleteAllVotes clears every vote row for an original.
func DeleteAllVotes(db *sql.DB, messageID int64) error {
	_, err := db.Exec("DELETE FROM votes WHERE message_id = ?", messageID)
	return mapError(err)
}

// PointCount returns upvotes minus downvotes for (original, starboard).
func PointCount(db *sql.DB, messageID, starboardID int64) (int, error) {
	var points int
	err := db.QueryRow(
		`SELECT COALESCE(SUM(CASE WHEN is_downvote THEN -1 ELSE 1 END), 0)
         FROM votes WHERE message_id = ? AND starboard_id = ?`,
		messageID, starboardID,
	).Scan(&points)
	if err != nil {
		return 0, mapError(err)
	}
	return points, nil
}

// CreatePost records a published post for (original, starboard).
func CreatePost(db *sql.DB, p *models.PublishedPost) error {
	_, err := db.Exec(
		`INSERT INTO starboard_messages (message_id, starboard_id, post_id, last_known_point_count)
         VALUES (?, ?, ?, ?)`,
		p.MessageID, p.StarboardID, p.PostID, p.LastKnownPointCount,
	)
	return mapError(err)
}

// GetPost loads the published post for (original, starboard); ErrNotFound
// when the original has no copy on that starboard.
func GetPost(db *sql.DB, messageID, starboardID int64) (*models.PublishedPost, error) {
	var p models.PublishedPost
	err := db.QueryRow(
		`SELECT message_id, starboard_id, post_id, last_known_point_count
         FROM starboard_messages WHERE message_id = ? AND starboard_id = ?`,
		messageID, starboardID,
	).Scan(&p.MessageID, &p.StarboardID, &p.PostID, &p.LastKnownPointCount)
	if err != nil {
		return nil, mapError(err)
	}
	return &p, nil
}

// GetPostByPostID resolves a destination message id back to its post row.
// Used to detect external deletion of a published copy.
func GetPostByPostID(db *sql.DB, postID int64) (*models.PublishedPost, error) {
	var p models.PublishedPost
	err := db.QueryRow(
		`SELECT message_id, starboard_id, post_id, last_known_point_count
         FROM starboard_messages WHERE post_id = ?`, postID,
	).Scan(&p.MessageID, &p.StarboardID, &p.PostID, &p.LastKnownPointCount)
	if err != nil {
		return nil, mapError(err)
	}
	return &p, nil
}

// PostsForOriginal lists every published post of one original.
func PostsForOriginal(db *sql.DB, messageID int64) ([]*models.PublishedPost, error) {
	rows, err := db.Query(
		`SELECT message_id, starboard_id, post_id, last_known_point_count
         FROM starboard_messages WHERE message_id = ?`, messageID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying posts: %w", err)
	}
	defer rows.Close()

	var posts []*models.PublishedPost
	for rows.Next() {
		var p models.PublishedPost
		if err := rows.Scan(&p.MessageID, &p.StarboardID, &p.PostID, &p.LastKnownPointCount); err != nil {
			return nil, err
		}
		posts = append(posts, &p)
	}
	return posts, rows.Err()
}

// SetPostPointCount updates the last point total a copy was rendered under.
func SetPostPointCount(db *sql.DB, messageID, starboardID int64, count int) error {
	_, err := db.Exec(
		"UPDATE starboard_messages SET last_known_point_count = ? WHERE message_id = ? AND starboard_id = ?",
		count, messageID, starboardID,
	)
	return mapError(err)
}

// DeletePost removes the post row for (original, starboard). Idempotent.
func DeletePost(db *sql.DB, messageID, starboardID int64) error {
	_, err := db.Exec(
		"DELETE FROM starboard_messages WHERE message_id = ? AND starboard_id = ?",
		messageID, starboardID,
	)
	return mapError(err)
}

// DirtyOriginals returns originals that have votes or posts on record, for
// the startup catch-up sweep.
func DirtyOriginals(db *sql.DB, limit int) ([]int64, error) {
	rows, err := db.Query(
		`SELECT DISTINCT message_id FROM (
            SELECT message_id FROM votes
            UNION
            SELECT message_id FROM starboard_messages
         ) LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying dirty originals: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
