package relation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"artmego/engine"
	"artmego/engine/ledger"
	"artmego/models"
)

// VoteReceipt 帶回投票後藝評的兩個計數
type VoteReceipt struct {
	UpvoteCount   int64
	DownvoteCount int64
}

// VoteCritique 在單一交易中對藝評投票，vote 為 L（喜歡）、D（不喜歡）或 N（收回）。
// 投票紀錄在首次投票時建立，之後只會改變種類；
// upvote_count / downvote_count 與紀錄在同一筆交易內一起更新。
// 與投票紀錄目前相同的請求是 no-op，未通過審核的藝評回報 KindNotFound
func (e *Engine) VoteCritique(ctx context.Context, buyerID, artworkID, criticID int64, vote string) (VoteReceipt, error) {
	const op = "relation.Engine.VoteCritique"

	vote = strings.ToUpper(strings.TrimSpace(vote))
	switch vote {
	case models.VoteLike, models.VoteDislike, models.VoteNone:
	default:
		return VoteReceipt{}, engine.Failf(engine.KindInvalidArgument, "unrecognized vote type %q", vote)
	}

	var receipt VoteReceipt
	err := e.store.Transaction(ctx, func(tx *gorm.DB) error {
		if _, err := e.store.Buyer(tx, buyerID); err != nil {
			return err
		}
		var critique models.Critique
		if result := tx.First(&critique, "artwork_id = ? AND critic_id = ?", artworkID, criticID); result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return engine.Failf(engine.KindNotFound, "critique (%d, %d) does not exist", artworkID, criticID)
			}
			return fmt.Errorf("[%s] Fail to find critique, err=%w", op, result.Error)
		}
		if !strings.EqualFold(critique.Status, models.CritiqueStatusApproved) {
			return engine.Failf(engine.KindNotFound, "critique (%d, %d) is not approved", artworkID, criticID)
		}

		previous := models.VoteNone
		var record models.CritiqueVote
		result := tx.First(&record, "artwork_id = ? AND critic_id = ? AND buyer_id = ?", artworkID, criticID, buyerID)
		switch {
		case result.Error == nil:
			previous = record.Type
		case errors.Is(result.Error, gorm.ErrRecordNotFound):
		default:
			return fmt.Errorf("[%s] Fail to find critique vote, err=%w", op, result.Error)
		}
		if vote == previous {
			receipt = VoteReceipt{UpvoteCount: critique.UpvoteCount, DownvoteCount: critique.DownvoteCount}
			return nil
		}

		// 前後種類的差即為兩個計數的增量
		upDelta := voteWeight(vote, models.VoteLike) - voteWeight(previous, models.VoteLike)
		downDelta := voteWeight(vote, models.VoteDislike) - voteWeight(previous, models.VoteDislike)

		if result.Error == nil {
			if result := tx.Model(&models.CritiqueVote{}).
				Where("artwork_id = ? AND critic_id = ? AND buyer_id = ?", artworkID, criticID, buyerID).
				Update("type", vote); result.Error != nil {
				return fmt.Errorf("[%s] Fail to update critique vote, err=%w", op, result.Error)
			}
		} else {
			record = models.CritiqueVote{
				ArtworkID: artworkID,
				CriticID:  criticID,
				BuyerID:   buyerID,
				Type:      vote,
			}
			if result := tx.Create(&record); result.Error != nil {
				if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
					return ledger.ErrConflict
				}
				return fmt.Errorf("[%s] Fail to create critique vote, err=%w", op, result.Error)
			}
		}
		if result := tx.Model(&models.Critique{}).
			Where("artwork_id = ? AND critic_id = ?", artworkID, criticID).
			Updates(map[string]any{
				"upvote_count":   gorm.Expr("upvote_count + ?", upDelta),
				"downvote_count": gorm.Expr("downvote_count + ?", downDelta),
			}); result.Error != nil {
			return fmt.Errorf("[%s] Fail to update vote counts, err=%w", op, result.Error)
		}
		receipt = VoteReceipt{
			UpvoteCount:   critique.UpvoteCount + upDelta,
			DownvoteCount: critique.DownvoteCount + downDelta,
		}
		return nil
	})
	if err != nil {
		return VoteReceipt{}, err
	}
	return receipt, nil
}

func voteWeight(vote, kind string) int64 {
	if vote == kind {
		return 1
	}
	return 0
}
