package sqlinline

const QCountConfirmedByRarity = `--sql c4646a03-a1df-4a82-ac1b-a426a0a74458
select rarity, count(*)
from artifacts
where status = 'CONFIRMED'
group by rarity;
`
