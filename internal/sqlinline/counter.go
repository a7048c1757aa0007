package sqlinline

// QAllocateToken is the read-increment-write on the single counter row.
// Postgres row locking makes the conditional increment atomic under
// concurrent callers; zero rows back means the supply is exhausted.
const QAllocateToken = `--sql bdcd788f-60b5-4c6b-9973-5f7859ba03c2
update token_counter
set last_issued = last_issued + 1,
    updated_at  = now()
where id = 1
  and last_issued < max_supply
returning last_issued;
`

const QCounterRemaining = `--sql 52e9386d-05bc-41d0-bdad-38ee5bd2034b
select max_supply - last_issued, max_supply
from token_counter
where id = 1;
`
